package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// ListApplicable returns active rules for the category (plus unscoped
	// rules), sorted by priority descending with insertion order breaking
	// ties.
	ListApplicable(ctx context.Context, category string, at time.Time) ([]BenefitRule, error)
	// InsertLogs appends execution audit records inside the caller's
	// transaction.
	InsertLogs(ctx context.Context, tx *gorm.DB, logs []*RuleExecutionLog) error
}
