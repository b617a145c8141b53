package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Claim, error)
	// RecordAdjudication persists the record and the claim's status change
	// inside the caller's transaction.
	RecordAdjudication(ctx context.Context, tx *gorm.DB, record *AdjudicationRecord, claimStatus string) error
	FindRecordByClaimID(ctx context.Context, claimID snowflake.ID) (*AdjudicationRecord, error)
}

var (
	ErrClaimNotFound           = errors.New("claim_not_found")
	ErrClaimAlreadyAdjudicated = errors.New("claim_already_adjudicated")
)
