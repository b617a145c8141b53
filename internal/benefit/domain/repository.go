package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// ListMappings returns the base coverage set for a scheme and tier,
	// ordered by benefit id for reproducible resolution.
	ListMappings(ctx context.Context, schemeID, planTierID snowflake.ID) ([]SchemeBenefitMapping, error)
	ListLimits(ctx context.Context, benefitIDs []snowflake.ID) ([]BenefitLimit, error)
	// ListRiderSelections returns the member's rider selections active at the
	// given time, rider definitions preloaded.
	ListRiderSelections(ctx context.Context, memberID snowflake.ID, at time.Time) ([]MemberRiderSelection, error)
}

type UtilizationRepository interface {
	// ListForMember returns all utilization rows whose window contains the
	// given time.
	ListForMember(ctx context.Context, memberID snowflake.ID, at time.Time) ([]BenefitUtilization, error)
	// ApplyUsage folds an adjudicated claim into the member's counters,
	// creating the period row when absent. Runs inside the caller's
	// transaction.
	ApplyUsage(ctx context.Context, tx *gorm.DB, usage UsageDelta) error
}

// UsageDelta is one adjudicated claim's contribution to utilization.
type UsageDelta struct {
	MemberID    snowflake.ID
	BenefitID   snowflake.ID
	SubCategory string
	Amount      float64
	Period      string
	ServiceDate time.Time
}
