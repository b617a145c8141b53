package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/vitalis-health/vitalis/internal/observability/context"
)

type adjudicateBatchRequest struct {
	ClaimIDs []string `json:"claimIds" binding:"required"`
}

// AdjudicateClaim runs the full pipeline for one claim and returns the
// synthesized decision. A claim that already left submitted status is
// rejected with a conflict.
func (s *Server) AdjudicateClaim(c *gin.Context) {
	claimID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.adjudication.Adjudicate(c.Request.Context(), claimID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AdjudicateBatch adjudicates a set of claims with bounded concurrency and
// returns the aggregate summary. Per-claim failures are reported inside the
// summary, not as an HTTP error.
func (s *Server) AdjudicateBatch(c *gin.Context) {
	var req adjudicateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("claimIds", "invalid_request", "claimIds is required"))
		return
	}
	if len(req.ClaimIDs) == 0 {
		AbortWithError(c, newValidationError("claimIds", "invalid_request", "claimIds must not be empty"))
		return
	}

	claimIDs := make([]snowflake.ID, 0, len(req.ClaimIDs))
	for _, raw := range req.ClaimIDs {
		id, err := parseID(raw)
		if err != nil {
			AbortWithError(c, newValidationError("claimIds", "invalid_claim_id", "invalid claim id: "+raw))
			return
		}
		claimIDs = append(claimIDs, id)
	}

	ctx := obscontext.WithBatchID(c.Request.Context(), uuid.NewString())
	summary, err := s.coordinator.Run(ctx, claimIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetAdjudication returns the persisted record of a claim's last
// adjudication.
func (s *Server) GetAdjudication(c *gin.Context) {
	claimID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	record, err := s.claims.FindRecordByClaimID(c.Request.Context(), claimID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if record == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, record)
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, newValidationError("id", "invalid_id", "id must be a numeric identifier")
	}
	return id, nil
}
