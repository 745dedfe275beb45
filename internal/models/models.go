// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Sentiment classification values produced by the analyzer.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Dispatch fingerprint lifecycle states.
const (
	FingerprintPending   = "pending"
	FingerprintSatisfied = "satisfied"
)

// Dispatch categories tracked in the budget ledger.
const (
	CategoryContentGeneration = "content_generation"
	CategoryScan              = "scan"
)

// Brand is the monitored organization.
type Brand struct {
	BrandID      uuid.UUID `db:"brand_id" json:"brand_id"`
	Name         string    `db:"name" json:"name"`
	Websites     []string  `db:"-" json:"websites"`
	Competitors  []string  `db:"-" json:"competitors"`
	Providers    []string  `db:"-" json:"providers"`
	BudgetCap    float64   `db:"budget_cap" json:"budget_cap"`
	Active       bool      `db:"active" json:"active"`
	ScheduledDOW int       `db:"scheduled_dow" json:"scheduled_dow"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// MonitoringQuery is one buyer-style question tracked for a brand. Queries
// are deactivated when superseded, never hard-deleted.
type MonitoringQuery struct {
	QueryID   uuid.UUID `db:"query_id" json:"query_id"`
	BrandID   uuid.UUID `db:"brand_id" json:"brand_id"`
	Text      string    `db:"text" json:"text"`
	Category  string    `db:"category" json:"category"`
	Priority  int       `db:"priority" json:"priority"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScanObservation is one model's answer to one query at one point in time.
// Immutable once written; the observation log is the source of truth for
// historical analytics.
type ScanObservation struct {
	ObservationID     uuid.UUID `db:"observation_id" json:"observation_id"`
	QueryID           uuid.UUID `db:"query_id" json:"query_id"`
	ProviderID        string    `db:"provider_id" json:"provider_id"`
	BrandMentioned    bool      `db:"brand_mentioned" json:"brand_mentioned"`
	BrandCited        bool      `db:"brand_cited" json:"brand_cited"`
	Position          *int      `db:"position" json:"position,omitempty"`
	CitationURLs      []string  `db:"-" json:"citation_urls"`
	CompetitorNames   []string  `db:"-" json:"competitor_names"`
	Sentiment         string    `db:"sentiment" json:"sentiment"`
	SentimentEvidence string    `db:"sentiment_evidence" json:"sentiment_evidence"`
	RawText           string    `db:"raw_text" json:"raw_text"`
	InputTokens       int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens      int       `db:"output_tokens" json:"output_tokens"`
	TotalCost         float64   `db:"total_cost" json:"total_cost"`
	ObservedAt        time.Time `db:"observed_at" json:"observed_at"`
}

// CitationState is the latest derived snapshot per (brand, query). It is a
// comparison baseline for the next cycle, never a source of truth for
// historical analytics.
type CitationState struct {
	BrandID           uuid.UUID `db:"brand_id" json:"brand_id"`
	QueryID           uuid.UUID `db:"query_id" json:"query_id"`
	WasCited          bool      `db:"was_cited" json:"was_cited"`
	WasMentioned      bool      `db:"was_mentioned" json:"was_mentioned"`
	Position          *int      `db:"position" json:"position,omitempty"`
	CompetitorSet     []string  `db:"-" json:"competitor_set"`
	LastObservationID uuid.UUID `db:"last_observation_id" json:"last_observation_id"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Transition is the computed delta between two consecutive citation states
// for the same query. Never persisted independently; always derived.
type Transition struct {
	FirstCitation  bool     `json:"first_citation"`
	CitationLost   bool     `json:"citation_lost"`
	PositionDelta  *int     `json:"position_delta,omitempty"`
	NewCompetitors []string `json:"new_competitors"`
}

// Meaningful reports whether the transition should be surfaced at all.
func (t Transition) Meaningful() bool {
	return t.FirstCitation || t.CitationLost ||
		(t.PositionDelta != nil && *t.PositionDelta != 0) ||
		len(t.NewCompetitors) > 0
}

// DispatchFingerprint is the content-addressed dedup key for a downstream
// action. Satisfied fingerprints are kept, not deleted, so re-scans inside
// the retention window do not re-trigger.
type DispatchFingerprint struct {
	Key       string    `db:"key" json:"key"`
	BrandID   uuid.UUID `db:"brand_id" json:"brand_id"`
	Topic     string    `db:"topic" json:"topic"`
	Status    string    `db:"status" json:"status"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BudgetEntry is one append-only cost ledger row. The dispatcher sums a
// trailing window of these to enforce per-brand caps.
type BudgetEntry struct {
	EntryID   uuid.UUID `db:"entry_id" json:"entry_id"`
	BrandID   uuid.UUID `db:"brand_id" json:"brand_id"`
	CostUnits float64   `db:"cost_units" json:"cost_units"`
	Category  string    `db:"category" json:"category"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AnalysisResult is the analyzer's structured signal for one raw response.
type AnalysisResult struct {
	Mentioned         bool     `json:"mentioned"`
	Cited             bool     `json:"cited"`
	Position          *int     `json:"position,omitempty"`
	CitationURLs      []string `json:"citation_urls"`
	PrimaryCitations  []string `json:"primary_citations"`
	CompetitorSet     []string `json:"competitor_set"`
	Sentiment         string   `json:"sentiment"`
	SentimentEvidence string   `json:"sentiment_evidence"`
}

// QueryCycleResult aggregates all provider observations for one query in
// one scan cycle. Cited/Mentioned are true when any provider observation
// says so; Position is the best (minimum) defined rank across providers.
type QueryCycleResult struct {
	QueryID       uuid.UUID          `json:"query_id"`
	Observations  []*ScanObservation `json:"observations"`
	Cited         bool               `json:"cited"`
	Mentioned     bool               `json:"mentioned"`
	Position      *int               `json:"position,omitempty"`
	CompetitorSet []string           `json:"competitor_set"`
}

// ContentTrigger is the downstream content-generation request. The
// pipeline's responsibility ends at successful enqueue.
type ContentTrigger struct {
	BrandID          uuid.UUID  `json:"brand_id"`
	TopicTitle       string     `json:"topic_title"`
	TopicDescription string     `json:"topic_description"`
	SourceTransition Transition `json:"source_transition"`
}

// AlertEvent is a fire-and-forget dashboard/notification event.
type AlertEvent struct {
	BrandID uuid.UUID      `json:"brand_id"`
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// BrandSummary is a lightweight brand listing row used by schedulers.
type BrandSummary struct {
	BrandID       uuid.UUID  `json:"brand_id"`
	Name          string     `json:"name"`
	IsActive      bool       `json:"is_active"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
}
