// services/scan_runner_service.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/metrics"
	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/providers"
)

// scanSystemPrompt frames each query the way a buyer would ask it, so
// responses look like organic AI answers rather than brand audits.
const scanSystemPrompt = "You are answering a question from someone researching products and services. " +
	"Give a direct, helpful answer naming specific companies, products, and sources where relevant."

type scanRunnerService struct {
	cfg      config.ScanConfig
	analyzer AnalyzerService
}

func NewScanRunnerService(cfg config.ScanConfig, analyzer AnalyzerService) ScanRunnerService {
	return &scanRunnerService{
		cfg:      cfg,
		analyzer: analyzer,
	}
}

// cell is one (query, provider) unit of work in the scan matrix.
type cell struct {
	query    *models.MonitoringQuery
	provider providers.Provider
}

// RunScanMatrix executes every query against every provider in bounded
// concurrent batches. A failed cell is logged, counted, and omitted from
// the result; it never fails the cycle and is never retried inline.
func (s *scanRunnerService) RunScanMatrix(ctx context.Context, queries []*models.MonitoringQuery, registry map[string]providers.Provider, target AnalysisTarget) ([]*models.ScanObservation, error) {
	cells := make([]cell, 0, len(queries)*len(registry))
	for _, q := range queries {
		for _, p := range registry {
			cells = append(cells, cell{query: q, provider: p})
		}
	}

	log.Info().
		Int("queries", len(queries)).
		Int("providers", len(registry)).
		Int("cells", len(cells)).
		Msg("Starting scan matrix")

	var (
		mu           sync.Mutex
		observations []*models.ScanObservation
	)

	for start := 0; start < len(cells); start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return observations, err
		}

		end := start + s.cfg.BatchSize
		if end > len(cells) {
			end = len(cells)
		}
		batch := cells[start:end]

		var wg sync.WaitGroup
		for _, c := range batch {
			wg.Add(1)
			go func(c cell) {
				defer wg.Done()

				obs, err := s.runCell(ctx, c, target)
				if err != nil {
					metrics.ScanCells.WithLabelValues(c.provider.Name(), "error").Inc()
					log.Warn().Err(err).
						Str("query_id", c.query.QueryID.String()).
						Str("provider", c.provider.Name()).
						Msg("Scan cell failed, omitting observation")
					return
				}

				metrics.ScanCells.WithLabelValues(c.provider.Name(), "ok").Inc()
				metrics.ObservationCost.WithLabelValues(c.provider.Name()).Observe(obs.TotalCost)

				mu.Lock()
				observations = append(observations, obs)
				mu.Unlock()
			}(c)
		}
		wg.Wait()

		if end < len(cells) {
			select {
			case <-ctx.Done():
				return observations, ctx.Err()
			case <-time.After(s.cfg.BatchDelay):
			}
		}
	}

	log.Info().
		Int("cells", len(cells)).
		Int("observations", len(observations)).
		Msg("Scan matrix complete")

	return observations, nil
}

func (s *scanRunnerService) runCell(ctx context.Context, c cell, target AnalysisTarget) (*models.ScanObservation, error) {
	cellCtx, cancel := context.WithTimeout(ctx, s.cfg.CellTimeout)
	defer cancel()

	resp, err := c.provider.RunQuery(cellCtx, c.query.Text, scanSystemPrompt)
	if err != nil {
		return nil, err
	}

	result := s.analyzer.Analyze(resp.Text, resp.Citations, target)

	return &models.ScanObservation{
		ObservationID:     uuid.New(),
		QueryID:           c.query.QueryID,
		ProviderID:        c.provider.Name(),
		BrandMentioned:    result.Mentioned,
		BrandCited:        result.Cited,
		Position:          result.Position,
		CitationURLs:      result.CitationURLs,
		CompetitorNames:   result.CompetitorSet,
		Sentiment:         result.Sentiment,
		SentimentEvidence: result.SentimentEvidence,
		RawText:           resp.Text,
		InputTokens:       resp.InputTokens,
		OutputTokens:      resp.OutputTokens,
		TotalCost:         resp.Cost,
		ObservedAt:        time.Now().UTC(),
	}, nil
}
