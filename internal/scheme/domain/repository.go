package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	FindSchemeByID(ctx context.Context, id snowflake.ID) (*Scheme, error)
	FindPlanTierByID(ctx context.Context, id snowflake.ID) (*PlanTier, error)
	// FindCorporateConfig returns the employer's customization of a scheme,
	// or nil when the company has none.
	FindCorporateConfig(ctx context.Context, companyID, schemeID snowflake.ID) (*CorporateSchemeConfig, error)
	// FindGradeBenefit returns the grade layer for a corporate config, or nil.
	FindGradeBenefit(ctx context.Context, corporateConfigID snowflake.ID, grade string) (*EmployeeGradeBenefit, error)
}

var (
	ErrSchemeNotFound   = errors.New("scheme_not_found")
	ErrPlanTierNotFound = errors.New("plan_tier_not_found")
)
