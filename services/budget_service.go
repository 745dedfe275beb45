// services/budget_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/metrics"
	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/repos"
)

type budgetService struct {
	ledger  repos.LedgerRepository
	cost    CostService
	cfg     config.DispatchConfig
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewBudgetService(ledger repos.LedgerRepository, cost CostService, cfg config.DispatchConfig) BudgetService {
	return &budgetService{
		ledger: ledger,
		cost:   cost,
		cfg:    cfg,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "budget-ledger",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		now: time.Now,
	}
}

// ShouldDispatch gates one candidate dispatch against the brand's trailing
// spend window, the estimated cost of the dispatch itself, and the per-
// category cooldown. Approval appends a provisional ledger entry before
// returning, so concurrent gates observe each other's spend. Ledger
// failures always deny.
func (s *budgetService) ShouldDispatch(ctx context.Context, brand *models.Brand, category string) *DispatchDecision {
	budgetCap := brand.BudgetCap
	if budgetCap <= 0 {
		budgetCap = s.cfg.DefaultCap
	}
	estimated := s.cost.EstimateCategoryCost(category)
	now := s.now().UTC()

	decision := func(allowed bool, reason string, window float64) *DispatchDecision {
		outcome := "denied"
		if allowed {
			outcome = "approved"
		}
		metrics.DispatchDecisions.WithLabelValues(outcome, reason).Inc()
		return &DispatchDecision{
			Allowed:       allowed,
			Reason:        reason,
			WindowTotal:   window,
			EstimatedCost: estimated,
		}
	}

	lastAt, err := s.lastDispatchAt(ctx, brand.BrandID, category)
	if err != nil {
		log.Error().Err(err).Str("brand_id", brand.BrandID.String()).Msg("Budget ledger unavailable, denying dispatch")
		return decision(false, "ledger_unavailable", 0)
	}
	if lastAt != nil && now.Sub(*lastAt) < s.cfg.Cooldown {
		return decision(false, "cooldown", 0)
	}

	window, err := s.sumSince(ctx, brand.BrandID, now.Add(-s.cfg.BudgetWindow))
	if err != nil {
		log.Error().Err(err).Str("brand_id", brand.BrandID.String()).Msg("Budget ledger unavailable, denying dispatch")
		return decision(false, "ledger_unavailable", 0)
	}

	if window+estimated > budgetCap {
		log.Info().
			Str("brand_id", brand.BrandID.String()).
			Float64("window_total", window).
			Float64("estimated", estimated).
			Float64("cap", budgetCap).
			Msg("Budget cap would be exceeded, denying dispatch")
		return decision(false, "cap_exceeded", window)
	}

	// Provisional entry: recorded before the dispatch happens so a burst of
	// approvals cannot collectively overshoot the cap unobserved.
	if err := s.RecordSpend(ctx, brand.BrandID, category, estimated); err != nil {
		log.Error().Err(err).Str("brand_id", brand.BrandID.String()).Msg("Failed to record provisional spend, denying dispatch")
		return decision(false, "ledger_unavailable", window)
	}

	return decision(true, "within_budget", window)
}

func (s *budgetService) RecordSpend(ctx context.Context, brandID uuid.UUID, category string, costUnits float64) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.ledger.Append(ctx, &models.BudgetEntry{
			EntryID:   uuid.New(),
			BrandID:   brandID,
			CostUnits: costUnits,
			Category:  category,
			CreatedAt: s.now().UTC(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to append budget entry: %w", err)
	}
	return nil
}

func (s *budgetService) lastDispatchAt(ctx context.Context, brandID uuid.UUID, category string) (*time.Time, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.ledger.LastDispatchAt(ctx, brandID, category)
	})
	if err != nil {
		return nil, err
	}
	return result.(*time.Time), nil
}

func (s *budgetService) sumSince(ctx context.Context, brandID uuid.UUID, since time.Time) (float64, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.ledger.SumSince(ctx, brandID, since)
	})
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}
