// Package batch runs adjudication over many claims concurrently while
// keeping each member's claims strictly ordered. Claims are grouped by
// member; each group is one unit of work so usage accumulation within a
// member stays sequential, and groups fan out across a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	adjdomain "github.com/vitalis-health/vitalis/internal/adjudication/domain"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	"github.com/vitalis-health/vitalis/internal/clock"
	"github.com/vitalis-health/vitalis/internal/config"
	obsctx "github.com/vitalis-health/vitalis/internal/observability/context"
	"github.com/vitalis-health/vitalis/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Entry is one claim's outcome within a batch.
type Entry struct {
	ClaimID snowflake.ID                  `json:"claimId"`
	Result  *adjdomain.AdjudicationResult `json:"result,omitempty"`
	Error   string                        `json:"error,omitempty"`
}

// Summary aggregates a completed batch run.
type Summary struct {
	BatchID string `json:"batchId"`

	Processed         int `json:"processed"`
	Approved          int `json:"approved"`
	PartiallyApproved int `json:"partiallyApproved"`
	Denied            int `json:"denied"`
	Failed            int `json:"failed"`

	TotalApprovedAmount float64 `json:"totalApprovedAmount"`

	Entries []Entry `json:"entries"`

	StartedAt time.Time     `json:"startedAt"`
	Elapsed   time.Duration `json:"-"`
}

type Coordinator struct {
	log     *zap.Logger
	clock   clock.Clock
	cfg     *config.AdjudicationConfigHolder
	service adjdomain.Service
	claims  claimdomain.Repository
	metrics *metrics.Metrics
}

type CoordinatorParam struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Config  *config.AdjudicationConfigHolder
	Service adjdomain.Service
	Claims  claimdomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

func NewCoordinator(p CoordinatorParam) *Coordinator {
	return &Coordinator{
		log:     p.Log.Named("batch"),
		clock:   p.Clock,
		cfg:     p.Config,
		service: p.Service,
		claims:  p.Claims,
		metrics: p.Metrics,
	}
}

// Run adjudicates the given claims. Per-claim failures are recorded on the
// summary instead of aborting the batch; Run itself only fails on context
// cancellation.
func (c *Coordinator) Run(ctx context.Context, claimIDs []snowflake.ID) (*Summary, error) {
	batchID := obsctx.BatchIDFromContext(ctx)
	if batchID == "" {
		batchID = uuid.NewString()
		ctx = obsctx.WithBatchID(ctx, batchID)
	}
	start := c.clock.Now()
	summary := &Summary{BatchID: batchID, StartedAt: start}

	groups, order := c.groupByMember(ctx, claimIDs, summary)

	workers := c.cfg.Current().BatchWorkers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, memberID := range order {
		ids := groups[memberID]
		g.Go(func() error {
			for _, claimID := range ids {
				if err := gctx.Err(); err != nil {
					return err
				}
				entry := c.adjudicateOne(gctx, claimID)
				mu.Lock()
				summary.record(entry)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Elapsed = c.clock.Now().Sub(start)
	c.metrics.RecordBatchRun(ctx)
	c.log.Info("batch complete",
		zap.String("batch_id", batchID),
		zap.Int("processed", summary.Processed),
		zap.Int("approved", summary.Approved),
		zap.Int("partially_approved", summary.PartiallyApproved),
		zap.Int("denied", summary.Denied),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// groupByMember buckets claim IDs per member, preserving submission order
// both across groups and within each group. Unresolvable claims are logged
// as failed entries up front.
func (c *Coordinator) groupByMember(ctx context.Context, claimIDs []snowflake.ID, summary *Summary) (map[snowflake.ID][]snowflake.ID, []snowflake.ID) {
	groups := make(map[snowflake.ID][]snowflake.ID)
	var order []snowflake.ID
	for _, claimID := range claimIDs {
		cl, err := c.claims.FindByID(ctx, claimID)
		if err != nil && !errors.Is(err, claimdomain.ErrClaimNotFound) {
			summary.record(Entry{ClaimID: claimID, Error: err.Error()})
			continue
		}
		if cl == nil {
			summary.record(Entry{ClaimID: claimID, Error: "claim not found"})
			continue
		}
		if _, seen := groups[cl.MemberID]; !seen {
			order = append(order, cl.MemberID)
		}
		groups[cl.MemberID] = append(groups[cl.MemberID], claimID)
	}
	return groups, order
}

func (c *Coordinator) adjudicateOne(ctx context.Context, claimID snowflake.ID) Entry {
	result, err := c.service.Adjudicate(ctx, claimID)
	if err != nil {
		c.log.Warn("claim failed in batch",
			zap.String("claim_id", claimID.String()),
			zap.Error(err),
		)
		return Entry{ClaimID: claimID, Error: err.Error()}
	}
	return Entry{ClaimID: claimID, Result: result}
}

func (s *Summary) record(entry Entry) {
	s.Entries = append(s.Entries, entry)
	s.Processed++
	if entry.Result == nil {
		s.Failed++
		return
	}
	switch entry.Result.Decision {
	case adjdomain.DecisionApproved:
		s.Approved++
	case adjdomain.DecisionPartiallyApproved:
		s.PartiallyApproved++
	case adjdomain.DecisionDenied:
		s.Denied++
	}
	s.TotalApprovedAmount += entry.Result.ApprovedAmount
}
