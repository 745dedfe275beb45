package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/providers/common"
)

// MockCostService is a mock implementation of the cost calculator.
type MockCostService struct {
	CalculateCostFunc func(provider, model string, inputTokens, outputTokens int, websearch bool) float64
}

func (m *MockCostService) CalculateCost(provider, model string, inputTokens, outputTokens int, websearch bool) float64 {
	if m.CalculateCostFunc != nil {
		return m.CalculateCostFunc(provider, model, inputTokens, outputTokens, websearch)
	}
	return 0.0015 // Default mock cost
}

func NewMockCostService() *MockCostService {
	return &MockCostService{}
}

// MockProvider is a scriptable Provider for runner and workflow tests.
type MockProvider struct {
	ProviderName string
	// RunQueryFunc overrides the default canned behavior when set.
	RunQueryFunc func(ctx context.Context, queryText, systemPrompt string) (*common.Response, error)
	// FailQueries lists query texts whose cells should fail.
	FailQueries map[string]bool
	// Delay is applied before each call to simulate a slow backend.
	Delay time.Duration

	mu    sync.Mutex
	calls []string
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) RunQuery(ctx context.Context, queryText, systemPrompt string) (*common.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, queryText)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.RunQueryFunc != nil {
		return m.RunQueryFunc(ctx, queryText, systemPrompt)
	}

	if m.FailQueries[queryText] {
		return nil, fmt.Errorf("mock provider %s: simulated failure for %q", m.Name(), queryText)
	}

	return &common.Response{
		Text:         fmt.Sprintf("Mock answer from %s for: %s", m.Name(), queryText),
		InputTokens:  100,
		OutputTokens: 200,
		Cost:         0.0015,
	}, nil
}

// Calls returns a copy of the queries this provider has seen.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// SampleConfig returns a config with test credentials and fast timings.
func SampleConfig() *config.Config {
	return &config.Config{
		Environment:      "test",
		OpenAIAPIKey:     "test-openai-key",
		AnthropicAPIKey:  "test-anthropic-key",
		PerplexityAPIKey: "test-perplexity-key",
		Scan: config.ScanConfig{
			BatchSize:       15,
			BatchDelay:      time.Millisecond,
			CellTimeout:     time.Second,
			ProviderRPS:     1000,
			SentimentWindow: 250,
		},
		Dispatch: config.DispatchConfig{
			BudgetWindow:   24 * time.Hour,
			Cooldown:       time.Hour,
			FingerprintTTL: time.Hour,
			DefaultCap:     100,
			TopicPrefixLen: 120,
		},
	}
}
