package providers

import (
	"fmt"
	"strings"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/providers/anthropic"
	"github.com/brandbeacon/beacon-workflows/internal/providers/common"
	"github.com/brandbeacon/beacon-workflows/internal/providers/openai"
	"github.com/brandbeacon/beacon-workflows/internal/providers/perplexity"
)

// NewProvider creates the appropriate provider for a provider/model id.
func NewProvider(providerID string, cfg *config.Config, costService common.CostCalculator) (Provider, error) {
	idLower := strings.ToLower(providerID)

	if strings.Contains(idLower, "gpt") || strings.Contains(idLower, "openai") {
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is empty in config")
		}
		return openai.NewProvider(cfg, providerID, costService), nil
	}

	if strings.Contains(idLower, "claude") || strings.Contains(idLower, "sonnet") ||
		strings.Contains(idLower, "opus") || strings.Contains(idLower, "haiku") ||
		strings.Contains(idLower, "anthropic") {
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key is empty in config")
		}
		return anthropic.NewProvider(cfg, providerID, costService), nil
	}

	if strings.Contains(idLower, "perplexity") || strings.Contains(idLower, "sonar") {
		if cfg.PerplexityAPIKey == "" {
			return nil, fmt.Errorf("Perplexity API key is empty in config")
		}
		return perplexity.NewProvider(cfg, providerID, costService), nil
	}

	return nil, fmt.Errorf("unsupported provider: %s", providerID)
}

// BuildRegistry resolves every configured provider id into a lookup table.
// Unresolvable ids are skipped and reported so one bad entry does not take
// down the whole scan.
func BuildRegistry(providerIDs []string, cfg *config.Config, costService common.CostCalculator) (map[string]Provider, []error) {
	registry := make(map[string]Provider, len(providerIDs))
	var errs []error
	for _, id := range providerIDs {
		p, err := NewProvider(id, cfg, costService)
		if err != nil {
			errs = append(errs, fmt.Errorf("provider %q: %w", id, err))
			continue
		}
		registry[id] = p
	}
	return registry, errs
}
