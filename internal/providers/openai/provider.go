package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/providers/common"
)

// Provider runs queries against the OpenAI responses API with the web
// search tool enabled, so answers carry url_citation annotations that feed
// the analyzer's structured-citation path.
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
		apiKey:      cfg.OpenAIAPIKey,
		baseURL:     "https://api.openai.com/v1",
		model:       model,
		costService: costService,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (p *Provider) Name() string {
	return "openai"
}

// webSearchRequest is the request body for the OpenAI responses API.
type webSearchRequest struct {
	Model        string          `json:"model"`
	Tools        []webSearchTool `json:"tools"`
	Input        string          `json:"input"`
	Instructions string          `json:"instructions,omitempty"`
}

type webSearchTool struct {
	Type string `json:"type"`
}

type webSearchResponse struct {
	ID     string            `json:"id"`
	Object string            `json:"object"`
	Status string            `json:"status"`
	Output []webSearchOutput `json:"output"`
	Usage  webSearchUsage    `json:"usage"`
}

type webSearchOutput struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Status  string             `json:"status,omitempty"`
	Content []webSearchContent `json:"content,omitempty"`
}

type webSearchContent struct {
	Type        string          `json:"type"`
	Text        string          `json:"text,omitempty"`
	Annotations []webAnnotation `json:"annotations,omitempty"`
}

type webAnnotation struct {
	Type       string `json:"type"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
}

type webSearchUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// RunQuery executes one query with web search enabled.
func (p *Provider) RunQuery(ctx context.Context, queryText, systemPrompt string) (*common.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestBody := webSearchRequest{
		Model:        p.model,
		Tools:        []webSearchTool{{Type: "web_search_preview"}},
		Input:        queryText,
		Instructions: systemPrompt,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/responses", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("responses API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("responses API returned status %d", resp.StatusCode)
	}

	var searchResp webSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode responses API body: %w", err)
	}

	text, citations := extractOutput(&searchResp)
	if text == "" {
		return nil, fmt.Errorf("no message content found in responses API output")
	}

	result := &common.Response{
		Text:         text,
		Citations:    citations,
		InputTokens:  searchResp.Usage.InputTokens,
		OutputTokens: searchResp.Usage.OutputTokens,
		Cost:         p.costService.CalculateCost(p.Name(), p.model, searchResp.Usage.InputTokens, searchResp.Usage.OutputTokens, true),
	}

	log.Debug().
		Str("provider", p.Name()).
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Int("citations", len(citations)).
		Msg("openai query completed")

	return result, nil
}

// extractOutput pulls the final message text and every url_citation
// annotation out of the response output items.
func extractOutput(resp *webSearchResponse) (string, []string) {
	var text string
	var citations []string
	seen := make(map[string]bool)

	for _, output := range resp.Output {
		if output.Type != "message" {
			continue
		}
		for _, content := range output.Content {
			if content.Type != "output_text" {
				continue
			}
			if text == "" {
				text = content.Text
			}
			for _, ann := range content.Annotations {
				if ann.Type != "url_citation" || ann.URL == "" || seen[ann.URL] {
					continue
				}
				citations = append(citations, ann.URL)
				seen[ann.URL] = true
			}
		}
	}

	return text, citations
}
