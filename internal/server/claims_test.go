package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	adjdomain "github.com/vitalis-health/vitalis/internal/adjudication/domain"
	"github.com/vitalis-health/vitalis/internal/batch"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	claimrepo "github.com/vitalis-health/vitalis/internal/claim/repository"
	"github.com/vitalis-health/vitalis/internal/clock"
	"github.com/vitalis-health/vitalis/internal/config"
	"github.com/vitalis-health/vitalis/internal/migration"
	"github.com/vitalis-health/vitalis/internal/observability"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubAdjudicator struct {
	results map[snowflake.ID]*adjdomain.AdjudicationResult
	err     error
}

func (s *stubAdjudicator) Adjudicate(ctx context.Context, claimID snowflake.ID) (*adjdomain.AdjudicationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if result, ok := s.results[claimID]; ok {
		return result, nil
	}
	return nil, claimdomain.ErrClaimNotFound
}

var serverSeq int

func newTestServer(t *testing.T) (*Server, *gin.Engine, *stubAdjudicator, *gorm.DB, *snowflake.Node) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	serverSeq++
	dsn := fmt.Sprintf("file:servertest%d?mode=memory&cache=shared", serverSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	stub := &stubAdjudicator{results: make(map[snowflake.ID]*adjdomain.AdjudicationResult)}
	claims := claimrepo.New(db)
	coordinator := batch.NewCoordinator(batch.CoordinatorParam{
		Log:     zap.NewNop(),
		Clock:   clock.NewFakeClock(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)),
		Config:  config.NewStaticAdjudicationConfigHolder(config.DefaultAdjudicationConfig()),
		Service: stub,
		Claims:  claims,
	})

	engine := NewEngine(observability.Config{})
	srv := NewServer(ServerParams{
		Gin:          engine,
		Adjudication: stub,
		Coordinator:  coordinator,
		Claims:       claims,
	})
	return srv, engine, stub, db, node
}

func TestAdjudicateClaim_OK(t *testing.T) {
	_, engine, stub, _, node := newTestServer(t)
	claimID := node.Generate()
	stub.results[claimID] = &adjdomain.AdjudicationResult{
		ClaimID:        claimID,
		Decision:       adjdomain.DecisionApproved,
		ApprovedAmount: 750,
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/claims/"+claimID.String()+"/adjudicate", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body adjdomain.AdjudicationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, adjdomain.DecisionApproved, body.Decision)
	assert.Equal(t, 750.0, body.ApprovedAmount)
}

func TestAdjudicateClaim_NotFound(t *testing.T) {
	_, engine, _, _, node := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/claims/"+node.Generate().String()+"/adjudicate", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdjudicateClaim_InvalidID(t *testing.T) {
	_, engine, _, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/claims/not-a-number/adjudicate", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdjudicateBatch_OK(t *testing.T) {
	_, engine, stub, db, node := newTestServer(t)

	memberID := node.Generate()
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
	stub.results[claim.ID] = &adjdomain.AdjudicationResult{
		ClaimID:        claim.ID,
		Decision:       adjdomain.DecisionApproved,
		ApprovedAmount: 100,
	}

	payload, _ := json.Marshal(map[string]any{"claimIds": []string{claim.ID.String()}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/claims/adjudicate-batch", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var summary batch.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Approved)
}

func TestAdjudicateBatch_EmptyBody(t *testing.T) {
	_, engine, _, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/claims/adjudicate-batch", bytes.NewReader([]byte(`{"claimIds":[]}`)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAdjudication(t *testing.T) {
	_, engine, _, db, node := newTestServer(t)

	claimID := node.Generate()
	record := claimdomain.AdjudicationRecord{
		ID:             node.Generate(),
		ClaimID:        claimID,
		ApprovedAmount: 420,
		Decision:       adjdomain.DecisionPartiallyApproved,
		AdjudicatedAt:  time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&record).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/claims/"+claimID.String()+"/adjudication", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var stored claimdomain.AdjudicationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, 420.0, stored.ApprovedAmount)

	// unknown claim
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/claims/"+node.Generate().String()+"/adjudication", nil)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
