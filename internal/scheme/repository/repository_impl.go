package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/vitalis-health/vitalis/internal/scheme/domain"
	"github.com/vitalis-health/vitalis/pkg/repository"
	"gorm.io/gorm"
)

type schemeRepository struct {
	schemes    repository.Repository[domain.Scheme]
	planTiers  repository.Repository[domain.PlanTier]
	corpConfig repository.Repository[domain.CorporateSchemeConfig]
	gradeBen   repository.Repository[domain.EmployeeGradeBenefit]
}

func New(db *gorm.DB) domain.Repository {
	return &schemeRepository{
		schemes:    repository.ProvideStore[domain.Scheme](db),
		planTiers:  repository.ProvideStore[domain.PlanTier](db),
		corpConfig: repository.ProvideStore[domain.CorporateSchemeConfig](db),
		gradeBen:   repository.ProvideStore[domain.EmployeeGradeBenefit](db),
	}
}

func (r *schemeRepository) FindSchemeByID(ctx context.Context, id snowflake.ID) (*domain.Scheme, error) {
	return r.schemes.FindOne(ctx, &domain.Scheme{ID: id})
}

func (r *schemeRepository) FindPlanTierByID(ctx context.Context, id snowflake.ID) (*domain.PlanTier, error) {
	return r.planTiers.FindOne(ctx, &domain.PlanTier{ID: id})
}

func (r *schemeRepository) FindCorporateConfig(ctx context.Context, companyID, schemeID snowflake.ID) (*domain.CorporateSchemeConfig, error) {
	return r.corpConfig.FindOne(ctx, &domain.CorporateSchemeConfig{CompanyID: companyID, SchemeID: schemeID})
}

func (r *schemeRepository) FindGradeBenefit(ctx context.Context, corporateConfigID snowflake.ID, grade string) (*domain.EmployeeGradeBenefit, error) {
	if grade == "" {
		return nil, nil
	}
	return r.gradeBen.FindOne(ctx, &domain.EmployeeGradeBenefit{CorporateConfigID: corporateConfigID, EmployeeGrade: grade})
}
