// Package domain contains benefit definitions, per-scheme coverage mappings,
// limits, riders and utilization counters.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Limit types evaluated by the limit checker.
const (
	LimitTypeOverallAnnual = "overall_annual"
	LimitTypeBenefitAnnual = "benefit_annual"
	LimitTypeSubLimit      = "sub_limit"
	LimitTypeFrequency     = "frequency"
	LimitTypeAgeBased      = "age_based"
)

// Limit periods controlling utilization reset boundaries.
const (
	PeriodAnnual   = "annual"
	PeriodMonthly  = "monthly"
	PeriodLifetime = "lifetime"
)

// EnhancedBenefit is a covered category of service.
type EnhancedBenefit struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Category  string       `gorm:"type:text;not null;index"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (EnhancedBenefit) TableName() string { return "enhanced_benefits" }

// SchemeBenefitMapping binds a benefit to a scheme and plan tier with its
// coverage terms. It is the unit each override layer rewrites.
type SchemeBenefitMapping struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	SchemeID   snowflake.ID `gorm:"not null;index"`
	PlanTierID snowflake.ID `gorm:"not null;index"`
	BenefitID  snowflake.ID `gorm:"not null;index"`

	IsCovered             bool     `gorm:"not null;default:true"`
	CoveragePercentage    float64  `gorm:"not null;default:100"`
	AnnualLimit           *float64
	DeductibleAmount      float64 `gorm:"not null;default:0"`
	CopayAmount           float64 `gorm:"not null;default:0"`
	CopayPercentage       float64 `gorm:"not null;default:0"`
	CoinsurancePercentage float64 `gorm:"not null;default:0"`
	RequiresPreAuth       bool    `gorm:"not null;default:false"`
	RequiresReferral      bool    `gorm:"not null;default:false"`
	NetworkRestriction    string  `gorm:"type:text"`

	Benefit EnhancedBenefit `gorm:"foreignKey:BenefitID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SchemeBenefitMapping) TableName() string { return "scheme_benefit_mappings" }

// BenefitLimit is one typed constraint attached to a benefit.
type BenefitLimit struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	BenefitID   snowflake.ID `gorm:"not null;index"`
	LimitType   string       `gorm:"type:text;not null"`
	LimitAmount float64      `gorm:"not null"`
	Period      string       `gorm:"type:text;not null;default:annual"`

	// sub_limit scope
	SubCategory string `gorm:"type:text"`

	// frequency scope
	MaxOccurrences int `gorm:"not null;default:0"`

	// age_based scope
	MinAge int    `gorm:"not null;default:0"`
	MaxAge int    `gorm:"not null;default:0"`
	Gender string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BenefitLimit) TableName() string { return "benefit_limits" }

// AppliesToAge reports whether an age_based limit covers the given age and
// gender. MaxAge == 0 means no upper bound; empty gender means both.
func (l BenefitLimit) AppliesToAge(age int, gender string) bool {
	if age < l.MinAge {
		return false
	}
	if l.MaxAge > 0 && age > l.MaxAge {
		return false
	}
	if l.Gender != "" && l.Gender != gender {
		return false
	}
	return true
}

// BenefitRider is an opt-in enhancement. Riders only ever widen coverage.
type BenefitRider struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	BenefitID snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:text;not null"`

	CoverageUplift     float64 `gorm:"not null;default:0"` // percentage points added
	AnnualLimitUplift  float64 `gorm:"not null;default:0"`
	RemovesAnnualLimit bool    `gorm:"not null;default:false"`
	WaivesPreAuth      bool    `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BenefitRider) TableName() string { return "benefit_riders" }

// MemberRiderSelection records a member's purchase of a rider.
type MemberRiderSelection struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	MemberID snowflake.ID `gorm:"not null;index"`
	RiderID  snowflake.ID `gorm:"not null;index"`

	EffectiveDate time.Time `gorm:"not null"`
	ExpiryDate    *time.Time

	Rider BenefitRider `gorm:"foreignKey:RiderID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (MemberRiderSelection) TableName() string { return "member_rider_selections" }

// ActiveAt reports whether the selection covers the given time.
func (s MemberRiderSelection) ActiveAt(at time.Time) bool {
	if at.Before(s.EffectiveDate) {
		return false
	}
	if s.ExpiryDate != nil && at.After(*s.ExpiryDate) {
		return false
	}
	return true
}

// BenefitUtilization is the running usage counter for one member and benefit
// within one period window. Rows with a SubCategory track sub-limit usage
// separately from the benefit total; Period names the reset cadence so a
// monthly limit and an annual limit on the same benefit keep separate rows.
type BenefitUtilization struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	MemberID    snowflake.ID `gorm:"not null;index:idx_utilization_member_benefit"`
	BenefitID   snowflake.ID `gorm:"not null;index:idx_utilization_member_benefit"`
	SubCategory string       `gorm:"type:text;not null;default:''"`
	Period      string       `gorm:"type:text;not null;default:annual"`
	PeriodStart time.Time    `gorm:"not null"`
	PeriodEnd   time.Time    `gorm:"not null"`
	UsedAmount  float64      `gorm:"not null;default:0"`
	UsageCount  int          `gorm:"not null;default:0"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BenefitUtilization) TableName() string { return "benefit_utilizations" }

// Covers reports whether the utilization window contains the given time.
func (u BenefitUtilization) Covers(at time.Time) bool {
	return !at.Before(u.PeriodStart) && at.Before(u.PeriodEnd)
}

// PeriodWindow returns the reset window containing the service date for the
// given period kind. Lifetime windows are unbounded.
func PeriodWindow(period string, serviceDate time.Time) (time.Time, time.Time) {
	serviceDate = serviceDate.UTC()
	switch period {
	case PeriodMonthly:
		start := time.Date(serviceDate.Year(), serviceDate.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	case PeriodLifetime:
		return time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		start := time.Date(serviceDate.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	}
}
