package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service runs the full adjudication pipeline for one claim. Fatal errors
// (missing claim or member, context build failure) surface as Go errors;
// every adjudication outcome, including denial, is a result.
type Service interface {
	Adjudicate(ctx context.Context, claimID snowflake.ID) (*AdjudicationResult, error)
}
