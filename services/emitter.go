// services/emitter.go
package services

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/inngest/inngestgo"
	"github.com/rs/zerolog/log"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

// Event names consumed downstream of the scan pipeline.
const (
	EventContentTrigger   = "content/generation.requested"
	EventContentCompleted = "content/generation.completed"
	EventAlert            = "brand/alert.raised"
	EventBrandScan        = "brand/scan.requested"
)

type inngestEmitter struct {
	client inngestgo.Client
}

func NewEventEmitter(client inngestgo.Client) EventEmitter {
	return &inngestEmitter{client: client}
}

// EmitContentTrigger enqueues a content-generation request. The send is
// retried with exponential backoff; a failure after retries is returned so
// the caller can release the topic's fingerprint.
func (e *inngestEmitter) EmitContentTrigger(ctx context.Context, trigger models.ContentTrigger) error {
	evt := inngestgo.Event{
		Name: EventContentTrigger,
		Data: map[string]any{
			"brand_id":          trigger.BrandID.String(),
			"topic_title":       trigger.TopicTitle,
			"topic_description": trigger.TopicDescription,
			"source_transition": trigger.SourceTransition,
		},
	}

	operation := func() error {
		_, err := e.client.Send(ctx, evt)
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)); err != nil {
		return fmt.Errorf("failed to enqueue content trigger: %w", err)
	}

	log.Info().
		Str("brand_id", trigger.BrandID.String()).
		Str("topic", trigger.TopicTitle).
		Msg("Content trigger enqueued")
	return nil
}

// EmitAlert is fire-and-forget: the cycle never fails because a dashboard
// notification could not be delivered.
func (e *inngestEmitter) EmitAlert(ctx context.Context, alert models.AlertEvent) {
	evt := inngestgo.Event{
		Name: EventAlert,
		Data: map[string]any{
			"brand_id": alert.BrandID.String(),
			"type":     alert.Type,
			"title":    alert.Title,
			"message":  alert.Message,
			"data":     alert.Data,
		},
	}

	if _, err := e.client.Send(ctx, evt); err != nil {
		log.Warn().Err(err).
			Str("brand_id", alert.BrandID.String()).
			Str("type", alert.Type).
			Msg("Failed to emit alert event")
	}
}
