package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vitalis-health/vitalis/internal/claim/domain"
	"github.com/vitalis-health/vitalis/pkg/repository"
	"gorm.io/gorm"
)

type claimRepository struct {
	db      *gorm.DB
	claims  repository.Repository[domain.Claim]
	records repository.Repository[domain.AdjudicationRecord]
}

func New(db *gorm.DB) domain.Repository {
	return &claimRepository{
		db:      db,
		claims:  repository.ProvideStore[domain.Claim](db),
		records: repository.ProvideStore[domain.AdjudicationRecord](db),
	}
}

func (r *claimRepository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Claim, error) {
	return r.claims.FindOne(ctx, &domain.Claim{ID: id})
}

func (r *claimRepository) RecordAdjudication(ctx context.Context, tx *gorm.DB, record *domain.AdjudicationRecord, claimStatus string) error {
	if tx == nil {
		tx = r.db
	}
	// Records are write-once; the service rejects claims that already left
	// submitted status, and the unique index on claim_id backstops that.
	if err := tx.WithContext(ctx).Create(record).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Model(&domain.Claim{}).
		Where("id = ?", record.ClaimID).
		Updates(map[string]any{
			"status":     claimStatus,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *claimRepository) FindRecordByClaimID(ctx context.Context, claimID snowflake.ID) (*domain.AdjudicationRecord, error) {
	return r.records.FindOne(ctx, &domain.AdjudicationRecord{ClaimID: claimID})
}
