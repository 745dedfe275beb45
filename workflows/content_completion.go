// workflows/content_completion.go
package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/rs/zerolog/log"

	"github.com/brandbeacon/beacon-workflows/services"
)

type ContentCompletionProcessor struct {
	dedupService services.DedupService
	client       inngestgo.Client
}

func NewContentCompletionProcessor(dedupService services.DedupService) *ContentCompletionProcessor {
	return &ContentCompletionProcessor{
		dedupService: dedupService,
	}
}

func (p *ContentCompletionProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// HandleContentCompleted marks a dispatched topic's fingerprint satisfied
// once the downstream content generator reports completion. A satisfied
// fingerprint stays in the store, so re-scans within the retention window
// never re-trigger the same topic.
func (p *ContentCompletionProcessor) HandleContentCompleted() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "handle-content-completed",
			Name:    "Handle Content Generation Completed",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger(services.EventContentCompleted, nil),
		func(ctx context.Context, input inngestgo.Input[ContentCompletedEvent]) (any, error) {
			brandID, err := uuid.Parse(input.Event.Data.BrandID)
			if err != nil {
				return nil, fmt.Errorf("invalid brand ID %q: %w", input.Event.Data.BrandID, err)
			}
			topic := input.Event.Data.TopicTitle

			key, err := step.Run(ctx, "mark-fingerprint-satisfied", func(ctx context.Context) (string, error) {
				key := p.dedupService.Fingerprint(brandID, topic)
				return key, p.dedupService.MarkSatisfied(ctx, key)
			})
			if err != nil {
				return nil, fmt.Errorf("failed to mark fingerprint satisfied: %w", err)
			}

			log.Info().
				Str("brand_id", brandID.String()).
				Str("key", key).
				Msg("Content topic marked satisfied")

			return map[string]interface{}{
				"brand_id": brandID.String(),
				"key":      key,
				"status":   "satisfied",
			}, nil
		},
	)
	if err != nil {
		panic(fmt.Errorf("failed to create HandleContentCompleted function: %w", err))
	}
	return fn
}

// Event types
type ContentCompletedEvent struct {
	BrandID    string `json:"brand_id"`
	TopicTitle string `json:"topic_title"`
	ContentID  string `json:"content_id,omitempty"`
}
