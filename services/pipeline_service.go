// services/pipeline_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/brandbeacon/beacon-workflows/internal/metrics"
	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/repos"
)

// Alert types raised by the pipeline.
const (
	AlertFirstCitation  = "first_citation"
	AlertCitationLost   = "citation_lost"
	AlertNewCompetitors = "new_competitors"
	AlertPositionShift  = "position_shift"
)

const diffConcurrency = 5

type pipelineService struct {
	observationRepo repos.ObservationRepository
	stateRepo       repos.StateRepository
	dedup           DedupService
	budget          BudgetService
	emitter         EventEmitter
	now             func() time.Time
}

func NewPipelineService(observationRepo repos.ObservationRepository, stateRepo repos.StateRepository, dedup DedupService, budget BudgetService, emitter EventEmitter) PipelineService {
	return &pipelineService{
		observationRepo: observationRepo,
		stateRepo:       stateRepo,
		dedup:           dedup,
		budget:          budget,
		emitter:         emitter,
		now:             time.Now,
	}
}

// ProcessCycleResults persists the cycle's observations, then diffs each
// query's aggregate against its previous citation state and replaces the
// snapshot. Queries whose every cell failed carry no evidence and are left
// untouched.
func (s *pipelineService) ProcessCycleResults(ctx context.Context, brand *models.Brand, queries []*models.MonitoringQuery, observations []*models.ScanObservation) ([]*QueryTransition, error) {
	if err := s.observationRepo.BulkCreate(ctx, observations); err != nil {
		return nil, fmt.Errorf("failed to persist observations: %w", err)
	}

	byQuery := make(map[string][]*models.ScanObservation)
	for _, obs := range observations {
		byQuery[obs.QueryID.String()] = append(byQuery[obs.QueryID.String()], obs)
	}

	var (
		mu          sync.Mutex
		transitions []*QueryTransition
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(diffConcurrency)

	for _, q := range queries {
		obs := byQuery[q.QueryID.String()]
		if len(obs) == 0 {
			log.Warn().
				Str("query_id", q.QueryID.String()).
				Msg("All cells failed for query, keeping previous state")
			continue
		}

		q := q
		g.Go(func() error {
			previous, err := s.stateRepo.Get(gctx, brand.BrandID, q.QueryID)
			if err != nil {
				return fmt.Errorf("failed to load state for query %s: %w", q.QueryID, err)
			}

			cycle := AggregateCycle(q.QueryID, obs)
			transition := DiffStates(previous, cycle)

			if err := s.stateRepo.Upsert(gctx, NextState(brand.BrandID, cycle, s.now().UTC())); err != nil {
				return fmt.Errorf("failed to upsert state for query %s: %w", q.QueryID, err)
			}

			recordTransitionMetrics(transition)

			mu.Lock()
			transitions = append(transitions, &QueryTransition{
				Query:      q,
				Cycle:      cycle,
				Transition: transition,
			})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return transitions, nil
}

// DispatchOpportunities raises alerts for meaningful transitions and pushes
// content triggers through the dedup and budget gates. Gate denials are
// counted, never errors.
func (s *pipelineService) DispatchOpportunities(ctx context.Context, brand *models.Brand, transitions []*QueryTransition) (*DispatchSummary, error) {
	summary := &DispatchSummary{}

	for _, qt := range transitions {
		if !qt.Transition.Meaningful() {
			continue
		}

		s.raiseAlerts(ctx, brand, qt)

		if !isContentOpportunity(qt) {
			continue
		}
		summary.Candidates++

		topic := contentTopic(brand, qt)
		acquired, key := s.dedup.TryAcquire(ctx, brand.BrandID, topic)
		if !acquired {
			summary.Suppressed++
			continue
		}

		decision := s.budget.ShouldDispatch(ctx, brand, models.CategoryContentGeneration)
		if !decision.Allowed {
			summary.BudgetDenied++
			// Budget denial is transient; free the topic for a later cycle.
			s.dedup.Release(ctx, key)
			log.Info().
				Str("brand_id", brand.BrandID.String()).
				Str("reason", decision.Reason).
				Str("topic", topic).
				Msg("Content dispatch denied by budget gate")
			continue
		}

		trigger := models.ContentTrigger{
			BrandID:          brand.BrandID,
			TopicTitle:       topic,
			TopicDescription: opportunityReason(qt),
			SourceTransition: qt.Transition,
		}
		if err := s.emitter.EmitContentTrigger(ctx, trigger); err != nil {
			s.dedup.Release(ctx, key)
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		summary.Dispatched++
	}

	return summary, nil
}

func (s *pipelineService) raiseAlerts(ctx context.Context, brand *models.Brand, qt *QueryTransition) {
	t := qt.Transition
	queryText := qt.Query.Text

	if t.FirstCitation {
		s.emitter.EmitAlert(ctx, models.AlertEvent{
			BrandID: brand.BrandID,
			Type:    AlertFirstCitation,
			Title:   "Brand cited for the first time",
			Message: fmt.Sprintf("%s is now cited when AI answers: %q", brand.Name, queryText),
			Data:    map[string]any{"query_id": qt.Query.QueryID.String()},
		})
	}
	if t.CitationLost {
		s.emitter.EmitAlert(ctx, models.AlertEvent{
			BrandID: brand.BrandID,
			Type:    AlertCitationLost,
			Title:   "Brand citation lost",
			Message: fmt.Sprintf("%s is no longer cited when AI answers: %q", brand.Name, queryText),
			Data:    map[string]any{"query_id": qt.Query.QueryID.String()},
		})
	}
	if t.PositionDelta != nil && *t.PositionDelta != 0 {
		s.emitter.EmitAlert(ctx, models.AlertEvent{
			BrandID: brand.BrandID,
			Type:    AlertPositionShift,
			Title:   "Brand position shifted",
			Message: fmt.Sprintf("%s moved %+d ranks for: %q", brand.Name, *t.PositionDelta, queryText),
			Data:    map[string]any{"query_id": qt.Query.QueryID.String(), "delta": *t.PositionDelta},
		})
	}
	if len(t.NewCompetitors) > 0 {
		s.emitter.EmitAlert(ctx, models.AlertEvent{
			BrandID: brand.BrandID,
			Type:    AlertNewCompetitors,
			Title:   "New competitors observed",
			Message: fmt.Sprintf("New competitors for %q: %s", queryText, strings.Join(t.NewCompetitors, ", ")),
			Data:    map[string]any{"query_id": qt.Query.QueryID.String(), "competitors": t.NewCompetitors},
		})
	}
}

// isContentOpportunity marks transitions worth generating reference content
// for: a lost citation, or a visibility gap where competitors gained ground
// on a query the brand is not cited for.
func isContentOpportunity(qt *QueryTransition) bool {
	if qt.Transition.CitationLost {
		return true
	}
	return !qt.Cycle.Cited && len(qt.Transition.NewCompetitors) > 0
}

func contentTopic(brand *models.Brand, qt *QueryTransition) string {
	return fmt.Sprintf("%s: %s", brand.Name, qt.Query.Text)
}

func opportunityReason(qt *QueryTransition) string {
	if qt.Transition.CitationLost {
		return fmt.Sprintf("Citation lost for monitoring query %q; publish reference content to regain it.", qt.Query.Text)
	}
	return fmt.Sprintf("Brand is not cited for %q while competitors gained visibility: %s.",
		qt.Query.Text, strings.Join(qt.Transition.NewCompetitors, ", "))
}

func recordTransitionMetrics(t models.Transition) {
	if t.FirstCitation {
		metrics.Transitions.WithLabelValues(AlertFirstCitation).Inc()
	}
	if t.CitationLost {
		metrics.Transitions.WithLabelValues(AlertCitationLost).Inc()
	}
	if t.PositionDelta != nil && *t.PositionDelta != 0 {
		metrics.Transitions.WithLabelValues(AlertPositionShift).Inc()
	}
	if len(t.NewCompetitors) > 0 {
		metrics.Transitions.WithLabelValues(AlertNewCompetitors).Inc()
	}
}
