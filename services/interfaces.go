// services/interfaces.go
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"

	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/providers"
)

// BrandService loads brand configuration for a scan cycle.
type BrandService interface {
	GetBrandDetails(ctx context.Context, brandID uuid.UUID) (*BrandDetails, error)
	GetBrandsScheduledForDOW(ctx context.Context, dow int) ([]*models.BrandSummary, error)
}

// QueryService is the query selector: active monitoring queries only,
// ordered by descending priority. No side effects; empty result is valid.
type QueryService interface {
	SelectActiveQueries(ctx context.Context, brandID uuid.UUID) ([]*models.MonitoringQuery, error)
}

// ScanRunnerService fans the query set out across every configured
// provider. Stateless between calls; failed cells are omitted, never
// retried inline.
type ScanRunnerService interface {
	RunScanMatrix(ctx context.Context, queries []*models.MonitoringQuery, registry map[string]providers.Provider, target AnalysisTarget) ([]*models.ScanObservation, error)
}

// AnalyzerService extracts structured signal from one raw response. Total:
// malformed input degrades to no-mention/neutral rather than erroring.
type AnalyzerService interface {
	Analyze(rawText string, structuredCitations []string, target AnalysisTarget) models.AnalysisResult
}

// DedupService is the idempotency guard over a keyed fingerprint store.
// Store failures are treated as "already acquired" (fail closed).
type DedupService interface {
	TryAcquire(ctx context.Context, brandID uuid.UUID, topic string) (bool, string)
	MarkSatisfied(ctx context.Context, key string) error
	Release(ctx context.Context, key string)
	Fingerprint(brandID uuid.UUID, topic string) string
}

// BudgetService is the budget-gated dispatcher decision point. Ledger
// failures deny dispatch (fail closed). Approval appends a provisional
// ledger entry before returning.
type BudgetService interface {
	ShouldDispatch(ctx context.Context, brand *models.Brand, category string) *DispatchDecision
	RecordSpend(ctx context.Context, brandID uuid.UUID, category string, costUnits float64) error
}

// CostService prices provider calls and estimates category costs for
// budget gating.
type CostService interface {
	CalculateCost(provider, model string, inputTokens, outputTokens int, websearch bool) float64
	EstimateCategoryCost(category string) float64
}

// VariationService generates brand-name variations used by mention
// detection. Failure falls back to the bare brand name.
type VariationService interface {
	GenerateNameVariations(ctx context.Context, brandName string, websites []string) ([]string, error)
}

// EventEmitter records observable outcomes for external consumers. Alerts
// are fire-and-forget; content triggers require successful enqueue.
type EventEmitter interface {
	EmitAlert(ctx context.Context, alert models.AlertEvent)
	EmitContentTrigger(ctx context.Context, trigger models.ContentTrigger) error
}

// PipelineService ties analyzer output to state diffing and dispatch for
// one brand's scan cycle.
type PipelineService interface {
	ProcessCycleResults(ctx context.Context, brand *models.Brand, queries []*models.MonitoringQuery, observations []*models.ScanObservation) ([]*QueryTransition, error)
	DispatchOpportunities(ctx context.Context, brand *models.Brand, transitions []*QueryTransition) (*DispatchSummary, error)
}

// BrandDetails is the fully resolved brand configuration for one cycle.
type BrandDetails struct {
	Brand          *models.Brand
	NameVariations []string
}

// AnalysisTarget carries everything the analyzer needs to know about the
// brand under scan.
type AnalysisTarget struct {
	BrandName      string
	NameVariations []string
	BrandDomains   []string
	Competitors    []string
}

// QueryTransition pairs one query's cycle aggregate with the transition
// computed against its previous citation state.
type QueryTransition struct {
	Query      *models.MonitoringQuery
	Cycle      *models.QueryCycleResult
	Transition models.Transition
}

// DispatchDecision is the budget gate's answer for one candidate dispatch.
type DispatchDecision struct {
	Allowed       bool
	Reason        string
	WindowTotal   float64
	EstimatedCost float64
}

// DispatchSummary reports what one cycle's dispatch pass did.
type DispatchSummary struct {
	Candidates   int
	Dispatched   int
	Suppressed   int
	BudgetDenied int
	Errors       []string
}

// NameVariationsResponse is the structured output contract for variation
// generation.
type NameVariationsResponse struct {
	Variations []string `json:"variations" jsonschema_description:"Name variations under which the brand may appear in text"`
}

// GenerateSchema generates a JSON schema for structured outputs.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var zero T
	schema := reflector.Reflect(zero)

	result := map[string]interface{}{
		"type":       "object",
		"properties": schema.Properties,
		"required":   schema.Required,
	}

	if schema.AdditionalProperties != nil {
		result["additionalProperties"] = false
	}

	return result
}
