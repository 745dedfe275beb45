// services/scan_runner_service_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/providers"
	"github.com/brandbeacon/beacon-workflows/internal/providers/testutil"
)

func testQueries(n int) []*models.MonitoringQuery {
	queries := make([]*models.MonitoringQuery, 0, n)
	for i := 0; i < n; i++ {
		queries = append(queries, &models.MonitoringQuery{
			QueryID: uuid.New(),
			BrandID: uuid.New(),
			Text:    fmt.Sprintf("query %d", i),
			Active:  true,
		})
	}
	return queries
}

func newTestRunner() ScanRunnerService {
	cfg := testutil.SampleConfig()
	return NewScanRunnerService(cfg.Scan, NewAnalyzerService(cfg.Scan))
}

func TestRunScanMatrixFullFanOut(t *testing.T) {
	queries := testQueries(10)
	registry := map[string]providers.Provider{
		"gpt-5":  &testutil.MockProvider{ProviderName: "gpt-5"},
		"claude": &testutil.MockProvider{ProviderName: "claude"},
		"sonar":  &testutil.MockProvider{ProviderName: "sonar"},
	}

	observations, err := newTestRunner().RunScanMatrix(context.Background(), queries, registry, acmeTarget())
	if err != nil {
		t.Fatalf("RunScanMatrix() error = %v", err)
	}
	if len(observations) != 30 {
		t.Errorf("observations = %d, want 10 queries x 3 providers = 30", len(observations))
	}
}

func TestRunScanMatrixIsolatesFailedCells(t *testing.T) {
	queries := testQueries(10)

	// One provider fails 7 of its 10 cells; the others are healthy.
	failing := map[string]bool{}
	for i := 0; i < 7; i++ {
		failing[fmt.Sprintf("query %d", i)] = true
	}
	registry := map[string]providers.Provider{
		"gpt-5":  &testutil.MockProvider{ProviderName: "gpt-5", FailQueries: failing},
		"claude": &testutil.MockProvider{ProviderName: "claude"},
		"sonar":  &testutil.MockProvider{ProviderName: "sonar"},
	}

	observations, err := newTestRunner().RunScanMatrix(context.Background(), queries, registry, acmeTarget())
	if err != nil {
		t.Fatalf("RunScanMatrix() error = %v", err)
	}
	if len(observations) != 23 {
		t.Errorf("observations = %d, want 30 cells - 7 failures = 23", len(observations))
	}

	// The failed provider's healthy cells still produced observations.
	healthy := 0
	for _, obs := range observations {
		if obs.ProviderID == "gpt-5" {
			healthy++
		}
	}
	if healthy != 3 {
		t.Errorf("gpt-5 observations = %d, want 3", healthy)
	}
}

func TestRunScanMatrixPopulatesObservations(t *testing.T) {
	queries := testQueries(1)
	registry := map[string]providers.Provider{
		"gpt-5": &testutil.MockProvider{ProviderName: "gpt-5"},
	}

	observations, err := newTestRunner().RunScanMatrix(context.Background(), queries, registry, acmeTarget())
	if err != nil {
		t.Fatalf("RunScanMatrix() error = %v", err)
	}
	if len(observations) != 1 {
		t.Fatalf("observations = %d, want 1", len(observations))
	}

	obs := observations[0]
	if obs.ObservationID == uuid.Nil {
		t.Error("observation must carry a generated ID")
	}
	if obs.QueryID != queries[0].QueryID {
		t.Error("observation must reference its query")
	}
	if obs.ProviderID != "gpt-5" {
		t.Errorf("provider_id = %q, want gpt-5", obs.ProviderID)
	}
	if obs.RawText == "" {
		t.Error("observation must retain the raw response text")
	}
	if obs.Sentiment == "" {
		t.Error("observation must carry a sentiment label")
	}
	if obs.TotalCost <= 0 {
		t.Error("observation must carry the call cost")
	}
	if obs.ObservedAt.IsZero() {
		t.Error("observation must be timestamped")
	}
}

func TestRunScanMatrixCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queries := testQueries(40)
	registry := map[string]providers.Provider{
		"gpt-5": &testutil.MockProvider{ProviderName: "gpt-5"},
	}

	_, err := newTestRunner().RunScanMatrix(ctx, queries, registry, acmeTarget())
	if err == nil {
		t.Error("cancelled context must surface an error")
	}
}

func TestRunScanMatrixEmptyQuerySet(t *testing.T) {
	registry := map[string]providers.Provider{
		"gpt-5": &testutil.MockProvider{ProviderName: "gpt-5"},
	}

	observations, err := newTestRunner().RunScanMatrix(context.Background(), nil, registry, acmeTarget())
	if err != nil {
		t.Fatalf("RunScanMatrix() error = %v", err)
	}
	if len(observations) != 0 {
		t.Errorf("observations = %d, want 0 for empty query set", len(observations))
	}
}
