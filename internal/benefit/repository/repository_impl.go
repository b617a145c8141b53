package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vitalis-health/vitalis/internal/benefit/domain"
	"github.com/vitalis-health/vitalis/pkg/repository"
	"github.com/vitalis-health/vitalis/pkg/db/option"
	"gorm.io/gorm"
)

type benefitRepository struct {
	db         *gorm.DB
	mappings   repository.Repository[domain.SchemeBenefitMapping]
	limits     repository.Repository[domain.BenefitLimit]
	selections repository.Repository[domain.MemberRiderSelection]
}

func New(db *gorm.DB) domain.Repository {
	return &benefitRepository{
		db:         db,
		mappings:   repository.ProvideStore[domain.SchemeBenefitMapping](db),
		limits:     repository.ProvideStore[domain.BenefitLimit](db),
		selections: repository.ProvideStore[domain.MemberRiderSelection](db),
	}
}

func (r *benefitRepository) ListMappings(ctx context.Context, schemeID, planTierID snowflake.ID) ([]domain.SchemeBenefitMapping, error) {
	rows, err := r.mappings.Find(ctx,
		&domain.SchemeBenefitMapping{SchemeID: schemeID, PlanTierID: planTierID},
		option.WithPreload("Benefit"),
		option.WithOrder("benefit_id asc"),
	)
	if err != nil {
		return nil, err
	}
	result := make([]domain.SchemeBenefitMapping, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row)
	}
	return result, nil
}

func (r *benefitRepository) ListLimits(ctx context.Context, benefitIDs []snowflake.ID) ([]domain.BenefitLimit, error) {
	if len(benefitIDs) == 0 {
		return nil, nil
	}
	var rows []domain.BenefitLimit
	err := r.db.WithContext(ctx).
		Where("benefit_id IN ?", benefitIDs).
		Order("benefit_id asc, id asc").
		Find(&rows).Error
	return rows, err
}

func (r *benefitRepository) ListRiderSelections(ctx context.Context, memberID snowflake.ID, at time.Time) ([]domain.MemberRiderSelection, error) {
	rows, err := r.selections.Find(ctx,
		&domain.MemberRiderSelection{MemberID: memberID},
		option.WithPreload("Rider"),
		option.WithOrder("id asc"),
	)
	if err != nil {
		return nil, err
	}
	result := make([]domain.MemberRiderSelection, 0, len(rows))
	for _, row := range rows {
		if !row.ActiveAt(at) {
			continue
		}
		result = append(result, *row)
	}
	return result, nil
}
