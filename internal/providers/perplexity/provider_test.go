package perplexity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brandbeacon/beacon-workflows/internal/providers/testutil"
)

func newTestServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "missing auth", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
}

func TestRunQueryParsesCitations(t *testing.T) {
	server := newTestServer(t, http.StatusOK, chatResponse{
		ID:        "resp-1",
		Model:     "sonar",
		Citations: []string{"https://example.com/review", "https://competitor.com/blog"},
		Choices: []chatChoice{{
			Index:        0,
			FinishReason: "stop",
			Message:      chatMessage{Role: "assistant", Content: "Acme is a popular choice."},
		}},
		Usage: chatUsage{PromptTokens: 50, CompletionTokens: 120, TotalTokens: 170},
	})
	defer server.Close()

	p := NewProvider(testutil.SampleConfig(), "sonar", testutil.NewMockCostService())
	p.baseURL = server.URL

	resp, err := p.RunQuery(context.Background(), "best widget tools", "")
	if err != nil {
		t.Fatalf("RunQuery() error = %v", err)
	}

	if resp.Text != "Acme is a popular choice." {
		t.Errorf("Text = %q, want answer text", resp.Text)
	}
	if len(resp.Citations) != 2 {
		t.Errorf("Citations = %d, want 2", len(resp.Citations))
	}
	if resp.InputTokens != 50 || resp.OutputTokens != 120 {
		t.Errorf("Tokens = (%d,%d), want (50,120)", resp.InputTokens, resp.OutputTokens)
	}
}

func TestRunQueryErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{"server error", http.StatusInternalServerError, map[string]string{"error": "boom"}},
		{"rate limited", http.StatusTooManyRequests, map[string]string{"error": "slow down"}},
		{"empty choices", http.StatusOK, chatResponse{ID: "resp-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.status, tt.body)
			defer server.Close()

			p := NewProvider(testutil.SampleConfig(), "sonar", testutil.NewMockCostService())
			p.baseURL = server.URL

			if _, err := p.RunQuery(context.Background(), "q", ""); err == nil {
				t.Error("Expected error, got none")
			}
		})
	}
}
