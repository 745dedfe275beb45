package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/providers/common"
)

// Provider runs queries against the Perplexity chat completions API.
// Perplexity returns a top-level citations array, which is the richest
// structured-citation source among the configured backends.
type Provider struct {
	apiKey      string
	baseURL     string
	model       string
	costService common.CostCalculator
	limiter     *rate.Limiter
	httpClient  *http.Client
}

func NewProvider(cfg *config.Config, model string, costService common.CostCalculator) *Provider {
	rps := cfg.Scan.ProviderRPS
	if rps <= 0 {
		rps = 5
	}

	return &Provider{
		apiKey:      cfg.PerplexityAPIKey,
		baseURL:     "https://api.perplexity.ai",
		model:       model,
		costService: costService,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (p *Provider) Name() string {
	return "perplexity"
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID        string       `json:"id"`
	Model     string       `json:"model"`
	Citations []string     `json:"citations"`
	Choices   []chatChoice `json:"choices"`
	Usage     chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (p *Provider) RunQuery(ctx context.Context, queryText, systemPrompt string) (*common.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	messages := []chatMessage{}
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: queryText})

	jsonData, err := json.Marshal(chatRequest{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perplexity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("perplexity API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode perplexity response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("no choices in perplexity response")
	}

	result := &common.Response{
		Text:         parsed.Choices[0].Message.Content,
		Citations:    parsed.Citations,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		Cost:         p.costService.CalculateCost(p.Name(), p.model, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, true),
	}

	log.Debug().
		Str("provider", p.Name()).
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Int("citations", len(result.Citations)).
		Msg("perplexity query completed")

	return result, nil
}
