// Package domain contains configurable adjudication rules and their
// execution audit log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Rule execution results recorded in the audit log. FAIL means the condition
// evaluated false; ERROR means the rule's documents could not be parsed or
// evaluated.
const (
	ResultPass  = "PASS"
	ResultFail  = "FAIL"
	ResultError = "ERROR"
)

// BenefitRule is a configured rule: a condition document, an action
// document, a priority (higher executes first) and a mandatory flag.
// Mandatory rule failure halts further rule execution.
type BenefitRule struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Name        string       `gorm:"type:text;not null"`
	Description string       `gorm:"type:text"`

	RulePriority int  `gorm:"not null;default:0;index"`
	IsMandatory  bool `gorm:"not null;default:false"`
	IsActive     bool `gorm:"not null;default:true"`

	// AppliesTo scopes the rule to one service category; empty means all.
	AppliesTo string `gorm:"type:text"`

	Condition datatypes.JSON `gorm:"type:jsonb;not null"`
	Action    datatypes.JSON `gorm:"type:jsonb;not null"`

	EffectiveDate time.Time `gorm:"not null"`
	ExpiryDate    *time.Time

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BenefitRule) TableName() string { return "benefit_rules" }

// ActiveAt reports whether the rule is in force at the given time.
func (r BenefitRule) ActiveAt(at time.Time) bool {
	if !r.IsActive {
		return false
	}
	if at.Before(r.EffectiveDate) {
		return false
	}
	if r.ExpiryDate != nil && at.After(*r.ExpiryDate) {
		return false
	}
	return true
}

// RuleExecutionLog is the immutable audit record of one rule evaluation
// against one claim.
type RuleExecutionLog struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	ClaimID snowflake.ID `gorm:"not null;index"`
	RuleID  snowflake.ID `gorm:"not null;index"`

	RuleName  string `gorm:"type:text;not null"`
	Priority  int    `gorm:"not null"`
	Mandatory bool   `gorm:"not null"`

	Result string `gorm:"type:text;not null"`
	Error  string `gorm:"type:text"`

	ModifiedFields datatypes.JSON `gorm:"type:jsonb"`

	EvaluatedAt    time.Time `gorm:"not null"`
	DurationMicros int64     `gorm:"not null;default:0"`
}

func (RuleExecutionLog) TableName() string { return "rule_execution_logs" }
