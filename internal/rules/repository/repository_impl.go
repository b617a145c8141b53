package repository

import (
	"context"
	"time"

	"github.com/vitalis-health/vitalis/internal/rules/domain"
	"gorm.io/gorm"
)

type ruleRepository struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) ListApplicable(ctx context.Context, category string, at time.Time) ([]domain.BenefitRule, error) {
	var rows []domain.BenefitRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("applies_to = ? OR applies_to = ''", category).
		Order("rule_priority desc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	applicable := rows[:0]
	for _, rule := range rows {
		if rule.ActiveAt(at) {
			applicable = append(applicable, rule)
		}
	}
	return applicable, nil
}

func (r *ruleRepository) InsertLogs(ctx context.Context, tx *gorm.DB, logs []*domain.RuleExecutionLog) error {
	if len(logs) == 0 {
		return nil
	}
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(logs).Error
}
