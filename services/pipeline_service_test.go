// services/pipeline_service_test.go
package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/providers/testutil"
	"github.com/brandbeacon/beacon-workflows/internal/store"
)

type fakeObservationRepo struct {
	mu      sync.Mutex
	created []*models.ScanObservation
}

func (r *fakeObservationRepo) BulkCreate(ctx context.Context, observations []*models.ScanObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, observations...)
	return nil
}

type fakeStateRepo struct {
	mu     sync.Mutex
	states map[string]*models.CitationState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: make(map[string]*models.CitationState)}
}

func (r *fakeStateRepo) key(brandID, queryID uuid.UUID) string {
	return brandID.String() + "/" + queryID.String()
}

func (r *fakeStateRepo) Get(ctx context.Context, brandID, queryID uuid.UUID) (*models.CitationState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[r.key(brandID, queryID)], nil
}

func (r *fakeStateRepo) Upsert(ctx context.Context, state *models.CitationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[r.key(state.BrandID, state.QueryID)] = state
	return nil
}

type fakeEmitter struct {
	mu       sync.Mutex
	triggers []models.ContentTrigger
	alerts   []models.AlertEvent
	fail     bool
}

func (e *fakeEmitter) EmitContentTrigger(ctx context.Context, trigger models.ContentTrigger) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return errors.New("enqueue failed")
	}
	e.triggers = append(e.triggers, trigger)
	return nil
}

func (e *fakeEmitter) EmitAlert(ctx context.Context, alert models.AlertEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = append(e.alerts, alert)
}

type pipelineFixture struct {
	pipeline PipelineService
	obsRepo  *fakeObservationRepo
	states   *fakeStateRepo
	ledger   *memoryLedger
	dedup    DedupService
	emitter  *fakeEmitter
}

func newPipelineFixture() *pipelineFixture {
	cfg := testutil.SampleConfig()
	obsRepo := &fakeObservationRepo{}
	states := newFakeStateRepo()
	ledger := &memoryLedger{}
	dedup := NewDedupService(store.NewMemoryFingerprintStore(), cfg.Dispatch)
	budget := NewBudgetService(ledger, NewCostService(), cfg.Dispatch)
	emitter := &fakeEmitter{}

	return &pipelineFixture{
		pipeline: NewPipelineService(obsRepo, states, dedup, budget, emitter),
		obsRepo:  obsRepo,
		states:   states,
		ledger:   ledger,
		dedup:    dedup,
		emitter:  emitter,
	}
}

func observationFor(q *models.MonitoringQuery, cited bool) *models.ScanObservation {
	return &models.ScanObservation{
		ObservationID:  uuid.New(),
		QueryID:        q.QueryID,
		ProviderID:     "gpt-5",
		BrandCited:     cited,
		BrandMentioned: true,
		Sentiment:      models.SentimentNeutral,
	}
}

func TestProcessCycleResults(t *testing.T) {
	f := newPipelineFixture()
	brand := testBrand(100)
	queries := testQueries(2)

	obs := []*models.ScanObservation{observationFor(queries[0], true)}

	transitions, err := f.pipeline.ProcessCycleResults(context.Background(), brand, queries, obs)
	require.NoError(t, err)

	assert.Len(t, f.obsRepo.created, 1, "observations must be persisted")
	require.Len(t, transitions, 1, "a query with no surviving cells carries no evidence")
	assert.True(t, transitions[0].Transition.FirstCitation)

	state, err := f.states.Get(context.Background(), brand.BrandID, queries[0].QueryID)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.WasCited)

	// The evidence-free query keeps no state at all.
	missing, err := f.states.Get(context.Background(), brand.BrandID, queries[1].QueryID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProcessCycleResultsDiffAgainstPrevious(t *testing.T) {
	f := newPipelineFixture()
	brand := testBrand(100)
	queries := testQueries(1)

	require.NoError(t, f.states.Upsert(context.Background(), &models.CitationState{
		BrandID:  brand.BrandID,
		QueryID:  queries[0].QueryID,
		WasCited: true,
	}))

	obs := []*models.ScanObservation{observationFor(queries[0], false)}
	transitions, err := f.pipeline.ProcessCycleResults(context.Background(), brand, queries, obs)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.True(t, transitions[0].Transition.CitationLost)
}

func lostCitationTransition(q *models.MonitoringQuery) *QueryTransition {
	return &QueryTransition{
		Query:      q,
		Cycle:      &models.QueryCycleResult{QueryID: q.QueryID, Mentioned: true},
		Transition: models.Transition{CitationLost: true},
	}
}

func TestDispatchOpportunities(t *testing.T) {
	f := newPipelineFixture()
	brand := testBrand(100)
	queries := testQueries(1)

	summary, err := f.pipeline.DispatchOpportunities(context.Background(), brand, []*QueryTransition{lostCitationTransition(queries[0])})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Candidates)
	assert.Equal(t, 1, summary.Dispatched)
	require.Len(t, f.emitter.triggers, 1)
	assert.Contains(t, f.emitter.triggers[0].TopicTitle, queries[0].Text)

	require.NotEmpty(t, f.emitter.alerts)
	assert.Equal(t, AlertCitationLost, f.emitter.alerts[0].Type)
}

func TestDispatchOpportunitiesSuppressesDuplicate(t *testing.T) {
	f := newPipelineFixture()
	brand := testBrand(1000)
	queries := testQueries(1)
	transition := lostCitationTransition(queries[0])

	first, err := f.pipeline.DispatchOpportunities(context.Background(), brand, []*QueryTransition{transition})
	require.NoError(t, err)
	require.Equal(t, 1, first.Dispatched)

	second, err := f.pipeline.DispatchOpportunities(context.Background(), brand, []*QueryTransition{transition})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Dispatched)
	assert.Equal(t, 1, second.Suppressed, "same topic must not dispatch twice")
}

func TestDispatchOpportunitiesBudgetDeniedReleasesTopic(t *testing.T) {
	f := newPipelineFixture()
	brand := testBrand(100)
	queries := testQueries(1)
	transition := lostCitationTransition(queries[0])

	// Exhaust the window so the budget gate denies.
	require.NoError(t, f.ledger.Append(context.Background(), &models.BudgetEntry{
		EntryID:   uuid.New(),
		BrandID:   brand.BrandID,
		CostUnits: 100,
		Category:  models.CategoryScan,
		CreatedAt: time.Now().UTC(),
	}))

	summary, err := f.pipeline.DispatchOpportunities(context.Background(), brand, []*QueryTransition{transition})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BudgetDenied)
	assert.Empty(t, f.emitter.triggers)

	// The fingerprint was released: the topic stays eligible once budget frees up.
	acquired, _ := f.dedup.TryAcquire(context.Background(), brand.BrandID, contentTopic(brand, transition))
	assert.True(t, acquired, "budget-denied topic must be retryable next cycle")
}

func TestDispatchOpportunitiesEmitFailureReleasesTopic(t *testing.T) {
	f := newPipelineFixture()
	f.emitter.fail = true
	brand := testBrand(1000)
	queries := testQueries(1)
	transition := lostCitationTransition(queries[0])

	summary, err := f.pipeline.DispatchOpportunities(context.Background(), brand, []*QueryTransition{transition})
	require.NoError(t, err)
	assert.Len(t, summary.Errors, 1)
	assert.Equal(t, 0, summary.Dispatched)

	acquired, _ := f.dedup.TryAcquire(context.Background(), brand.BrandID, contentTopic(brand, transition))
	assert.True(t, acquired, "failed enqueue must not burn the topic")
}

func TestDispatchOpportunitiesIgnoresQuietTransitions(t *testing.T) {
	f := newPipelineFixture()
	brand := testBrand(100)
	queries := testQueries(1)

	quiet := &QueryTransition{
		Query:      queries[0],
		Cycle:      &models.QueryCycleResult{QueryID: queries[0].QueryID, Cited: true},
		Transition: models.Transition{},
	}

	summary, err := f.pipeline.DispatchOpportunities(context.Background(), brand, []*QueryTransition{quiet})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Candidates)
	assert.Empty(t, f.emitter.alerts)
	assert.Empty(t, f.emitter.triggers)
}
