package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/providers/common"
)

// Provider runs queries against the Anthropic messages API. Anthropic does
// not expose structured source URLs at this boundary, so Citations is
// always empty and the analyzer falls back to in-text URL extraction.
type Provider struct {
	client      *anthropic.Client
	model       string
	costService common.CostCalculator
	limiter     *rate.Limiter
}

func NewProvider(cfg *config.Config, model string, costService common.CostCalculator) *Provider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.AnthropicAPIKey),
	)

	rps := cfg.Scan.ProviderRPS
	if rps <= 0 {
		rps = 5
	}

	return &Provider{
		client:      &client,
		model:       model,
		costService: costService,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (p *Provider) Name() string {
	return "anthropic"
}

func (p *Provider) RunQuery(ctx context.Context, queryText, systemPrompt string) (*common.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	messages := []anthropic.MessageParam{{
		Content: []anthropic.ContentBlockParamUnion{{
			OfText: &anthropic.TextBlockParam{Text: queryText},
		}},
		Role: anthropic.MessageParamRoleUser,
	}}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   2000,
		Messages:    messages,
		Temperature: anthropic.Float(0.7),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	response, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic call failed: %w", err)
	}

	text := extractResponseText(response)
	if text == "" {
		return nil, fmt.Errorf("no text content in anthropic response")
	}

	inputTokens := int(response.Usage.InputTokens)
	outputTokens := int(response.Usage.OutputTokens)

	result := &common.Response{
		Text:         text,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         p.costService.CalculateCost(p.Name(), p.model, inputTokens, outputTokens, false),
	}

	log.Debug().
		Str("provider", p.Name()).
		Int("input_tokens", inputTokens).
		Int("output_tokens", outputTokens).
		Msg("anthropic query completed")

	return result, nil
}

// extractResponseText concatenates the text blocks of a message response.
func extractResponseText(response *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}
