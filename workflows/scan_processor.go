// workflows/scan_processor.go
package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/rs/zerolog/log"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/metrics"
	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/providers"
	"github.com/brandbeacon/beacon-workflows/services"
)

type ScanProcessor struct {
	brandService  services.BrandService
	queryService  services.QueryService
	scanRunner    services.ScanRunnerService
	pipeline      services.PipelineService
	budgetService services.BudgetService
	costService   services.CostService
	client        inngestgo.Client
	cfg           *config.Config
}

func NewScanProcessor(
	brandService services.BrandService,
	queryService services.QueryService,
	scanRunner services.ScanRunnerService,
	pipeline services.PipelineService,
	budgetService services.BudgetService,
	costService services.CostService,
	cfg *config.Config,
) *ScanProcessor {
	return &ScanProcessor{
		brandService:  brandService,
		queryService:  queryService,
		scanRunner:    scanRunner,
		pipeline:      pipeline,
		budgetService: budgetService,
		costService:   costService,
		cfg:           cfg,
	}
}

func (p *ScanProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// ProcessBrandScan is the full scan cycle for one brand: load config,
// select queries, fan out across providers, persist observations, diff
// citation states, and dispatch gated content triggers.
func (p *ScanProcessor) ProcessBrandScan() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "process-brand-scan",
			Name:    "Process Brand Scan - Citation Monitoring Pipeline",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger(services.EventBrandScan, nil),
		func(ctx context.Context, input inngestgo.Input[BrandScanEvent]) (any, error) {
			brandID, err := uuid.Parse(input.Event.Data.BrandID)
			if err != nil {
				return nil, fmt.Errorf("invalid brand ID %q: %w", input.Event.Data.BrandID, err)
			}

			log.Info().Str("brand_id", brandID.String()).Msg("Starting brand scan cycle")

			// Step 1: load brand configuration and name variations
			details, err := step.Run(ctx, "load-brand-details", func(ctx context.Context) (*services.BrandDetails, error) {
				return p.brandService.GetBrandDetails(ctx, brandID)
			})
			if err != nil {
				return nil, fmt.Errorf("step 1 failed: %w", err)
			}
			brand := details.Brand

			// Step 2: select the active query set
			queries, err := step.Run(ctx, "select-active-queries", func(ctx context.Context) ([]*models.MonitoringQuery, error) {
				return p.queryService.SelectActiveQueries(ctx, brandID)
			})
			if err != nil {
				return nil, fmt.Errorf("step 2 failed: %w", err)
			}

			// Empty query set short-circuits before any provider call.
			if len(queries) == 0 {
				metrics.ScanCycles.WithLabelValues("skipped").Inc()
				return map[string]interface{}{
					"brand_id": brandID.String(),
					"status":   "skipped",
					"reason":   "no active monitoring queries",
				}, nil
			}

			// Step 3: fan the query set out across every configured provider
			observations, err := step.Run(ctx, "run-scan-matrix", func(ctx context.Context) ([]*models.ScanObservation, error) {
				registry, badProviders := providers.BuildRegistry(brand.Providers, p.cfg, p.costService)
				for _, provErr := range badProviders {
					log.Warn().Err(provErr).Str("brand_id", brandID.String()).Msg("Skipping unusable provider")
				}
				if len(registry) == 0 {
					return nil, fmt.Errorf("no usable providers configured for brand %s", brandID)
				}

				target := services.AnalysisTarget{
					BrandName:      brand.Name,
					NameVariations: details.NameVariations,
					BrandDomains:   brand.Websites,
					Competitors:    brand.Competitors,
				}
				return p.scanRunner.RunScanMatrix(ctx, queries, registry, target)
			})
			if err != nil {
				_ = ReportScanFailureToSlack(brandID.String(), brand.Name, "run-scan-matrix", err)
				return nil, fmt.Errorf("step 3 failed: %w", err)
			}

			// Step 4: persist observations and diff citation states
			transitions, err := step.Run(ctx, "process-cycle-results", func(ctx context.Context) ([]*services.QueryTransition, error) {
				return p.pipeline.ProcessCycleResults(ctx, brand, queries, observations)
			})
			if err != nil {
				_ = ReportScanFailureToSlack(brandID.String(), brand.Name, "process-cycle-results", err)
				return nil, fmt.Errorf("step 4 failed: %w", err)
			}

			// Step 5: record the cycle's provider spend against the budget window
			scanCost, err := step.Run(ctx, "record-scan-spend", func(ctx context.Context) (float64, error) {
				var total float64
				for _, obs := range observations {
					total += obs.TotalCost
				}
				if total == 0 {
					return 0, nil
				}
				return total, p.budgetService.RecordSpend(ctx, brandID, models.CategoryScan, total)
			})
			if err != nil {
				return nil, fmt.Errorf("step 5 failed: %w", err)
			}

			// Step 6: alerts and budget-gated content dispatch
			summary, err := step.Run(ctx, "dispatch-opportunities", func(ctx context.Context) (*services.DispatchSummary, error) {
				return p.pipeline.DispatchOpportunities(ctx, brand, transitions)
			})
			if err != nil {
				return nil, fmt.Errorf("step 6 failed: %w", err)
			}

			metrics.ScanCycles.WithLabelValues("completed").Inc()

			log.Info().
				Str("brand_id", brandID.String()).
				Int("queries", len(queries)).
				Int("observations", len(observations)).
				Int("dispatched", summary.Dispatched).
				Msg("Brand scan cycle complete")

			return map[string]interface{}{
				"brand_id":     brandID.String(),
				"brand_name":   brand.Name,
				"status":       "completed",
				"queries":      len(queries),
				"observations": len(observations),
				"transitions":  len(transitions),
				"scan_cost":    scanCost,
				"dispatch":     summary,
				"completed_at": time.Now().UTC(),
			}, nil
		},
	)
	if err != nil {
		panic(fmt.Errorf("failed to create ProcessBrandScan function: %w", err))
	}
	return fn
}

// Event types
type BrandScanEvent struct {
	BrandID     string `json:"brand_id"`
	TriggeredBy string `json:"triggered_by"`
}
