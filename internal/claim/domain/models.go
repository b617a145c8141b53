// Package domain contains the claim model and its persisted adjudication
// record.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Claim lifecycle states. A claim is immutable input to adjudication; only
// the synthesizer's persistence step moves it out of StatusSubmitted.
const (
	StatusSubmitted         = "submitted"
	StatusApproved          = "approved"
	StatusPartiallyApproved = "partially_approved"
	StatusDenied            = "denied"
)

// Provider network tiers carried on the claim at submission time.
const (
	NetworkTierPreferred    = "preferred"
	NetworkTierStandard     = "standard"
	NetworkTierOutOfNetwork = "out_of_network"
)

type Claim struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	MemberID snowflake.ID `gorm:"not null;index"`

	ProviderID          snowflake.ID `gorm:"not null"`
	ProviderNetworkTier string       `gorm:"type:text;not null;default:standard"`

	ServiceCategory    string    `gorm:"type:text;not null"`
	ServiceSubCategory string    `gorm:"type:text"`
	ServiceDate        time.Time `gorm:"not null"`
	SubmissionDate     time.Time `gorm:"not null"`

	Amount float64 `gorm:"not null"`

	HasPreAuthorization bool `gorm:"not null;default:false"`
	HasReferral         bool `gorm:"not null;default:false"`

	Status string `gorm:"type:text;not null;default:submitted"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Claim) TableName() string { return "claims" }

// AdjudicationRecord is the persisted outcome of one adjudication call.
// Breakdown payloads are stored as JSON documents for the audit trail.
type AdjudicationRecord struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	ClaimID snowflake.ID `gorm:"not null;uniqueIndex"`

	OriginalAmount        float64 `gorm:"not null"`
	ApprovedAmount        float64 `gorm:"not null"`
	MemberResponsibility  float64 `gorm:"not null"`
	InsurerResponsibility float64 `gorm:"not null"`

	Decision             string `gorm:"type:text;not null"`
	RequiresManualReview bool   `gorm:"not null;default:false"`

	DenialReasons datatypes.JSON `gorm:"type:jsonb"`
	Notes         datatypes.JSON `gorm:"type:jsonb"`
	CostSharing   datatypes.JSON `gorm:"type:jsonb"`
	LimitChecks   datatypes.JSON `gorm:"type:jsonb"`
	AppliedRules  datatypes.JSON `gorm:"type:jsonb"`
	NextSteps     datatypes.JSON `gorm:"type:jsonb"`

	Explanation string `gorm:"type:text"`

	AdjudicatedAt time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AdjudicationRecord) TableName() string { return "adjudication_records" }
