package repos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

type observationRepo struct {
	db *sqlx.DB
}

func NewObservationRepo(db *sqlx.DB) ObservationRepository {
	return &observationRepo{db: db}
}

const insertObservation = `
INSERT INTO scan_observations (
	observation_id, query_id, provider_id, brand_mentioned, brand_cited,
	position, citation_urls, competitor_names, sentiment, sentiment_evidence,
	raw_text, input_tokens, output_tokens, total_cost, observed_at
) VALUES (
	:observation_id, :query_id, :provider_id, :brand_mentioned, :brand_cited,
	:position, :citation_urls, :competitor_names, :sentiment, :sentiment_evidence,
	:raw_text, :input_tokens, :output_tokens, :total_cost, :observed_at
)
ON CONFLICT (observation_id) DO NOTHING`

// BulkCreate appends observations inside one transaction. The insert is
// conflict-tolerant on observation_id so a retried cycle step cannot
// duplicate rows.
func (r *observationRepo) BulkCreate(ctx context.Context, observations []*models.ScanObservation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin observation tx: %w", err)
	}
	defer tx.Rollback()

	for _, obs := range observations {
		args := map[string]interface{}{
			"observation_id":     obs.ObservationID,
			"query_id":           obs.QueryID,
			"provider_id":        obs.ProviderID,
			"brand_mentioned":    obs.BrandMentioned,
			"brand_cited":        obs.BrandCited,
			"position":           obs.Position,
			"citation_urls":      pq.Array(obs.CitationURLs),
			"competitor_names":   pq.Array(obs.CompetitorNames),
			"sentiment":          obs.Sentiment,
			"sentiment_evidence": obs.SentimentEvidence,
			"raw_text":           obs.RawText,
			"input_tokens":       obs.InputTokens,
			"output_tokens":      obs.OutputTokens,
			"total_cost":         obs.TotalCost,
			"observed_at":        obs.ObservedAt,
		}
		if _, err := tx.NamedExecContext(ctx, insertObservation, args); err != nil {
			return fmt.Errorf("failed to insert observation %s: %w", obs.ObservationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit observations: %w", err)
	}
	return nil
}
