package providers_test

import (
	"testing"

	"github.com/brandbeacon/beacon-workflows/internal/providers"
	"github.com/brandbeacon/beacon-workflows/internal/providers/testutil"
)

func TestFactoryCreatesCorrectProvider(t *testing.T) {
	tests := []struct {
		providerID       string
		expectedProvider string
		shouldError      bool
	}{
		{"gpt-4.1", "openai", false},
		{"openai", "openai", false},
		{"GPT-5-mini", "openai", false},
		{"claude-sonnet-4-20250514", "anthropic", false},
		{"anthropic", "anthropic", false},
		{"haiku", "anthropic", false},
		{"perplexity", "perplexity", false},
		{"sonar", "perplexity", false},
		{"gemini", "", true},
		{"unsupported-model", "", true},
		{"", "", true},
	}

	cfg := testutil.SampleConfig()
	costService := testutil.NewMockCostService()

	for _, tt := range tests {
		t.Run(tt.providerID, func(t *testing.T) {
			provider, err := providers.NewProvider(tt.providerID, cfg, costService)

			if tt.shouldError {
				if err == nil {
					t.Errorf("Expected error for provider %s, but got none", tt.providerID)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error for provider %s: %v", tt.providerID, err)
				return
			}

			if provider == nil {
				t.Errorf("Provider is nil for %s", tt.providerID)
				return
			}

			if provider.Name() != tt.expectedProvider {
				t.Errorf("Expected provider %s, got %s", tt.expectedProvider, provider.Name())
			}
		})
	}
}

func TestFactoryRequiresCredentials(t *testing.T) {
	cfg := testutil.SampleConfig()
	cfg.OpenAIAPIKey = ""
	cfg.AnthropicAPIKey = ""
	cfg.PerplexityAPIKey = ""

	for _, id := range []string{"gpt-4.1", "claude-sonnet-4-20250514", "sonar"} {
		if _, err := providers.NewProvider(id, cfg, testutil.NewMockCostService()); err == nil {
			t.Errorf("Expected missing-key error for %s, got none", id)
		}
	}
}

func TestBuildRegistrySkipsBadEntries(t *testing.T) {
	cfg := testutil.SampleConfig()

	registry, errs := providers.BuildRegistry([]string{"gpt-4.1", "gemini", "sonar"}, cfg, testutil.NewMockCostService())

	if len(registry) != 2 {
		t.Errorf("Expected 2 resolved providers, got %d", len(registry))
	}
	if len(errs) != 1 {
		t.Errorf("Expected 1 resolution error, got %d", len(errs))
	}
	if _, ok := registry["gpt-4.1"]; !ok {
		t.Error("Expected gpt-4.1 in registry")
	}
	if _, ok := registry["sonar"]; !ok {
		t.Error("Expected sonar in registry")
	}
}
