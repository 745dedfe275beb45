// workflows/scheduled_processor.go
package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/rs/zerolog/log"

	"github.com/brandbeacon/beacon-workflows/services"
)

type ScheduledProcessor struct {
	brandService services.BrandService
	client       inngestgo.Client
}

func NewScheduledProcessor(brandService services.BrandService) *ScheduledProcessor {
	return &ScheduledProcessor{
		brandService: brandService,
	}
}

func (p *ScheduledProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// DailyScanScheduler fans a scan event out to every brand whose weekly
// schedule lands on today. Each send is its own idempotent step, so a
// retried run only repeats sends that did not complete.
func (p *ScheduledProcessor) DailyScanScheduler() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "daily-scan-scheduler",
			Name: "Daily Brand Scan Scheduler - Weekly Cycle",
		},
		inngestgo.CronTrigger("0 2 * * *"), // Every day at 2 AM UTC
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			// Monday is zero
			// Go's logic: Sunday=0, Monday=1, ... Saturday=6
			// Conversion: (time.Now().Weekday() + 6) % 7
			now := time.Now()
			dayOfWeek := int((now.Weekday() + 6) % 7)

			brands, err := step.Run(ctx, "get-scheduled-brands", func(ctx context.Context) ([]*scheduledBrand, error) {
				summaries, err := p.brandService.GetBrandsScheduledForDOW(ctx, dayOfWeek)
				if err != nil {
					return nil, err
				}
				scheduled := make([]*scheduledBrand, 0, len(summaries))
				for _, s := range summaries {
					if !s.IsActive {
						continue
					}
					scheduled = append(scheduled, &scheduledBrand{BrandID: s.BrandID.String(), Name: s.Name})
				}
				return scheduled, nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to get scheduled brands for DOW %d: %w", dayOfWeek, err)
			}

			if len(brands) == 0 {
				return map[string]interface{}{
					"execution_date": now.Format("2006-01-02"),
					"weekday":        now.Weekday().String(),
					"dow_value":      dayOfWeek,
					"brands_found":   0,
					"message":        fmt.Sprintf("No brands scheduled for %s (DOW %d)", now.Weekday().String(), dayOfWeek),
				}, nil
			}

			triggered := 0
			for _, b := range brands {
				stepName := fmt.Sprintf("trigger-brand-scan-%s", b.BrandID)

				_, err := step.Run(ctx, stepName, func(ctx context.Context) (interface{}, error) {
					evt := inngestgo.Event{
						Name: services.EventBrandScan,
						Data: map[string]interface{}{
							"brand_id":     b.BrandID,
							"triggered_by": "automatic_scheduler",
						},
					}
					return p.client.Send(ctx, evt)
				})
				if err != nil {
					log.Error().Err(err).Str("brand_id", b.BrandID).Msg("Failed to trigger scheduled brand scan")
					continue
				}
				triggered++
			}

			return map[string]interface{}{
				"execution_date": now.Format("2006-01-02"),
				"weekday":        now.Weekday().String(),
				"dow_value":      dayOfWeek,
				"brands_found":   len(brands),
				"scans_sent":     triggered,
			}, nil
		},
	)
	if err != nil {
		panic(fmt.Errorf("failed to create DailyScanScheduler function: %w", err))
	}
	return fn
}

type scheduledBrand struct {
	BrandID string `json:"brand_id"`
	Name    string `json:"name"`
}
