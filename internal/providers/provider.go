package providers

import (
	"context"

	"github.com/brandbeacon/beacon-workflows/internal/providers/common"
)

// Provider is the uniform boundary to one language-model backend. The
// pipeline treats every provider identically here regardless of how each is
// actually invoked.
type Provider interface {
	// RunQuery executes one query and returns the free-text answer plus any
	// structured source URLs the backend exposes.
	RunQuery(ctx context.Context, queryText, systemPrompt string) (*common.Response, error)
	Name() string
}
