// Package domain contains scheme, plan tier and corporate override models.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Scheme is an insurance product with a coverage window and age bounds.
type Scheme struct {
	ID                 snowflake.ID `gorm:"primaryKey"`
	Name               string       `gorm:"type:text;not null"`
	IsActive           bool         `gorm:"not null;default:true"`
	LaunchDate         time.Time    `gorm:"not null"`
	SunsetDate         *time.Time
	MinAge             int       `gorm:"not null;default:0"`
	MaxAge             int       `gorm:"not null;default:120"`
	NetworkAccessLevel string    `gorm:"type:text;not null;default:standard"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Scheme) TableName() string { return "schemes" }

// WithinWindow reports whether the scheme is sellable at the given time.
func (s Scheme) WithinWindow(at time.Time) bool {
	if at.Before(s.LaunchDate) {
		return false
	}
	if s.SunsetDate != nil && at.After(*s.SunsetDate) {
		return false
	}
	return true
}

// PlanTier is one coverage level within a scheme.
type PlanTier struct {
	ID                 snowflake.ID `gorm:"primaryKey"`
	SchemeID           snowflake.ID `gorm:"not null;index"`
	Name               string       `gorm:"type:text;not null"`
	IsActive           bool         `gorm:"not null;default:true"`
	OverallAnnualLimit float64      `gorm:"not null"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PlanTier) TableName() string { return "plan_tiers" }

// CorporateSchemeConfig customizes a scheme for one employer. Benefit
// overrides are keyed by benefit id; cost-sharing overrides, when set,
// replace the engine-computed components.
type CorporateSchemeConfig struct {
	ID               snowflake.ID   `gorm:"primaryKey"`
	CompanyID        snowflake.ID   `gorm:"not null;index"`
	SchemeID         snowflake.ID   `gorm:"not null;index"`
	EffectiveDate    time.Time      `gorm:"not null"`
	ExpiryDate       *time.Time
	BenefitOverrides datatypes.JSON `gorm:"type:jsonb"`

	DeductibleOverride      *float64
	CopayOverride           *float64
	CoinsuranceOverride     *float64
	NetworkDiscountOverride *float64

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CorporateSchemeConfig) TableName() string { return "corporate_scheme_configs" }

// WithinWindow reports whether the corporate contract covers the given time.
func (c CorporateSchemeConfig) WithinWindow(at time.Time) bool {
	if at.Before(c.EffectiveDate) {
		return false
	}
	if c.ExpiryDate != nil && at.After(*c.ExpiryDate) {
		return false
	}
	return true
}

// Overrides decodes the per-benefit override map. Keys are benefit ids in
// decimal string form.
func (c CorporateSchemeConfig) Overrides() (map[string]MappingOverride, error) {
	return decodeOverrides(c.BenefitOverrides)
}

// EmployeeGradeBenefit layers grade-specific overrides on top of a corporate
// config.
type EmployeeGradeBenefit struct {
	ID                snowflake.ID   `gorm:"primaryKey"`
	CorporateConfigID snowflake.ID   `gorm:"not null;index"`
	EmployeeGrade     string         `gorm:"type:text;not null"`
	BenefitOverrides  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (EmployeeGradeBenefit) TableName() string { return "employee_grade_benefits" }

func (g EmployeeGradeBenefit) Overrides() (map[string]MappingOverride, error) {
	return decodeOverrides(g.BenefitOverrides)
}

// MappingOverride is one layer's field-level override of a benefit mapping.
// Nil fields leave the underlying value untouched.
type MappingOverride struct {
	IsCovered             *bool    `json:"isCovered,omitempty"`
	CoveragePercentage    *float64 `json:"coveragePercentage,omitempty"`
	AnnualLimit           *float64 `json:"annualLimit,omitempty"`
	RemoveAnnualLimit     bool     `json:"removeAnnualLimit,omitempty"`
	DeductibleAmount      *float64 `json:"deductibleAmount,omitempty"`
	CopayAmount           *float64 `json:"copayAmount,omitempty"`
	CopayPercentage       *float64 `json:"copayPercentage,omitempty"`
	CoinsurancePercentage *float64 `json:"coinsurancePercentage,omitempty"`
	RequiresPreAuth       *bool    `json:"requiresPreAuth,omitempty"`
	RequiresReferral      *bool    `json:"requiresReferral,omitempty"`
	NetworkRestriction    *string  `json:"networkRestriction,omitempty"`
}

func decodeOverrides(raw datatypes.JSON) (map[string]MappingOverride, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	overrides := map[string]MappingOverride{}
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// EncodeOverrides serializes an override map for storage, used by seeds and
// admin tooling.
func EncodeOverrides(overrides map[string]MappingOverride) (datatypes.JSON, error) {
	raw, err := json.Marshal(overrides)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
