package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	adjdomain "github.com/vitalis-health/vitalis/internal/adjudication/domain"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	claimrepo "github.com/vitalis-health/vitalis/internal/claim/repository"
	"github.com/vitalis-health/vitalis/internal/clock"
	"github.com/vitalis-health/vitalis/internal/config"
	"github.com/vitalis-health/vitalis/internal/migration"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stubService records adjudication order and returns canned decisions.
type stubService struct {
	mu       sync.Mutex
	seen     []snowflake.ID
	decision map[snowflake.ID]string
	fail     map[snowflake.ID]error
}

func (s *stubService) Adjudicate(ctx context.Context, claimID snowflake.ID) (*adjdomain.AdjudicationResult, error) {
	s.mu.Lock()
	s.seen = append(s.seen, claimID)
	s.mu.Unlock()

	if err, ok := s.fail[claimID]; ok {
		return nil, err
	}
	decision := s.decision[claimID]
	if decision == "" {
		decision = adjdomain.DecisionApproved
	}
	approved := 100.0
	if decision == adjdomain.DecisionDenied {
		approved = 0
	}
	return &adjdomain.AdjudicationResult{
		ClaimID:        claimID,
		Decision:       decision,
		ApprovedAmount: approved,
	}, nil
}

var batchSeq int

func newBatchFixture(t *testing.T) (*Coordinator, *stubService, *gorm.DB, *snowflake.Node) {
	t.Helper()

	batchSeq++
	dsn := fmt.Sprintf("file:batchtest%d?mode=memory&cache=shared", batchSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	stub := &stubService{
		decision: make(map[snowflake.ID]string),
		fail:     make(map[snowflake.ID]error),
	}
	coordinator := NewCoordinator(CoordinatorParam{
		Log:     zap.NewNop(),
		Clock:   clock.NewFakeClock(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)),
		Config:  config.NewStaticAdjudicationConfigHolder(config.DefaultAdjudicationConfig()),
		Service: stub,
		Claims:  claimrepo.New(db),
	})
	return coordinator, stub, db, node
}

func createClaim(t *testing.T, db *gorm.DB, node *snowflake.Node, memberID snowflake.ID) snowflake.ID {
	t.Helper()
	claim := claimdomain.Claim{
		ID:              node.Generate(),
		MemberID:        memberID,
		ProviderID:      node.Generate(),
		ServiceCategory: "outpatient",
		ServiceDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		SubmissionDate:  time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Amount:          100,
		Status:          claimdomain.StatusSubmitted,
	}
	require.NoError(t, db.Create(&claim).Error)
	return claim.ID
}

func TestRun_SummaryCounts(t *testing.T) {
	coordinator, stub, db, node := newBatchFixture(t)
	memberA := node.Generate()
	memberB := node.Generate()

	approved := createClaim(t, db, node, memberA)
	denied := createClaim(t, db, node, memberA)
	partial := createClaim(t, db, node, memberB)

	stub.decision[denied] = adjdomain.DecisionDenied
	stub.decision[partial] = adjdomain.DecisionPartiallyApproved

	summary, err := coordinator.Run(context.Background(), []snowflake.ID{approved, denied, partial})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Approved)
	assert.Equal(t, 1, summary.Denied)
	assert.Equal(t, 1, summary.PartiallyApproved)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 300.0, summary.TotalApprovedAmount)
	assert.Len(t, summary.Entries, 3)
	assert.NotEmpty(t, summary.BatchID)
}

func TestRun_PerClaimFailureDoesNotAbortBatch(t *testing.T) {
	coordinator, stub, db, node := newBatchFixture(t)
	member := node.Generate()

	ok := createClaim(t, db, node, member)
	broken := createClaim(t, db, node, member)
	stub.fail[broken] = fmt.Errorf("context build failed")

	summary, err := coordinator.Run(context.Background(), []snowflake.ID{ok, broken})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Approved)
	assert.Equal(t, 1, summary.Failed)

	var failedEntry *Entry
	for i := range summary.Entries {
		if summary.Entries[i].ClaimID == broken {
			failedEntry = &summary.Entries[i]
		}
	}
	require.NotNil(t, failedEntry)
	assert.Equal(t, "context build failed", failedEntry.Error)
	assert.Nil(t, failedEntry.Result)
}

func TestRun_UnknownClaimRecordedAsFailed(t *testing.T) {
	coordinator, _, db, node := newBatchFixture(t)
	member := node.Generate()
	known := createClaim(t, db, node, member)
	unknown := node.Generate()

	summary, err := coordinator.Run(context.Background(), []snowflake.ID{unknown, known})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "claim not found", summary.Entries[0].Error)
}

func TestRun_SameMemberClaimsKeepSubmissionOrder(t *testing.T) {
	coordinator, stub, db, node := newBatchFixture(t)
	member := node.Generate()

	var ids []snowflake.ID
	for i := 0; i < 5; i++ {
		ids = append(ids, createClaim(t, db, node, member))
	}

	_, err := coordinator.Run(context.Background(), ids)
	require.NoError(t, err)

	require.Len(t, stub.seen, 5)
	assert.Equal(t, ids, stub.seen)
}

func TestRun_EmptyBatch(t *testing.T) {
	coordinator, _, _, _ := newBatchFixture(t)
	summary, err := coordinator.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, summary.Entries)
}
