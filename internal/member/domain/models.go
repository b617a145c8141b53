// Package domain contains the insured member model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	PremiumStatusCurrent = "current"
	PremiumStatusGrace   = "grace"
	PremiumStatusLapsed  = "lapsed"
)

// Member is an insured person bound to at most one active scheme and plan
// tier. Corporate members additionally carry a company affiliation and an
// employee grade used for benefit overrides.
type Member struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	FullName      string        `gorm:"type:text;not null"`
	DateOfBirth   time.Time     `gorm:"not null"`
	Gender        string        `gorm:"type:text;not null"`
	CompanyID     *snowflake.ID `gorm:"index"`
	EmployeeID    string        `gorm:"type:text"`
	EmployeeGrade string        `gorm:"type:text"`
	SchemeID      *snowflake.ID `gorm:"index"`
	PlanTierID    *snowflake.ID `gorm:"index"`
	PremiumStatus string        `gorm:"type:text;not null;default:current"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }

// AgeAt returns the member's age in whole years at the given time.
func (m Member) AgeAt(at time.Time) int {
	age := at.Year() - m.DateOfBirth.Year()
	anniversary := m.DateOfBirth.AddDate(age, 0, 0)
	if anniversary.After(at) {
		age--
	}
	return age
}

// IsCorporate reports whether the member is covered through an employer.
func (m Member) IsCorporate() bool { return m.CompanyID != nil }
