package collect

import (
	"context"
	"log"
	"time"

	"marketpulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RateSource fetches the spot exchange rate for one currency pair.
type RateSource interface {
	Name() string
	FetchRate(ctx context.Context, base, target string) (*domain.RateRecord, error)
}

// RateEnricher supplies month-window history for a pair. Enrichment is
// best-effort: its failure never invalidates a successful spot fetch.
type RateEnricher interface {
	FetchRateHistory(ctx context.Context, base, target string) (*domain.RateHistory, error)
}

// RateStep pairs a rate source with its retry policy.
type RateStep struct {
	Source RateSource
	Policy RetryPolicy
}

// RateCollector resolves exchange rates through an ordered source chain.
type RateCollector struct {
	tracer   trace.Tracer
	steps    []RateStep
	enricher RateEnricher
	base     string
	pause    time.Duration
}

func NewRateCollector(tracer trace.Tracer, steps []RateStep, enricher RateEnricher, base string, pause time.Duration) *RateCollector {
	return &RateCollector{tracer: tracer, steps: steps, enricher: enricher, base: base, pause: pause}
}

// Collect resolves base/target, then merges month-history enrichment
// into the record when the winning source did not already provide it.
func (c *RateCollector) Collect(ctx context.Context, target string) *domain.RateRecord {
	ctx, span := c.tracer.Start(ctx, "collect.rate")
	defer span.End()
	pair := c.base + "/" + target
	span.SetAttributes(attribute.String("pair", pair))

	steps := make([]Step[*domain.RateRecord], 0, len(c.steps))
	for _, s := range c.steps {
		src := s.Source
		steps = append(steps, Step[*domain.RateRecord]{
			Name:   src.Name(),
			Policy: s.Policy,
			Fetch: func(ctx context.Context) (*domain.RateRecord, error) {
				return src.FetchRate(ctx, c.base, target)
			},
		})
	}

	record, source, err := NewChain("rate", steps...).Resolve(ctx, pair)
	if err != nil {
		span.RecordError(err)
		return &domain.RateRecord{
			Pair:      pair,
			Success:   false,
			Error:     ReasonAllSourcesFailed,
			FetchedAt: time.Now().UTC(),
		}
	}

	record.Pair = pair
	record.Source = source
	record.Success = true
	record.FetchedAt = time.Now().UTC()
	span.SetAttributes(attribute.String("source", source))

	if record.PreviousRate == nil && c.enricher != nil {
		c.enrich(ctx, target, record)
	}
	return record
}

func (c *RateCollector) enrich(ctx context.Context, target string, record *domain.RateRecord) {
	ctx, span := c.tracer.Start(ctx, "collect.rate-history")
	defer span.End()

	hist, err := c.enricher.FetchRateHistory(ctx, c.base, target)
	if err != nil {
		log.Printf("rate history enrichment failed for %s: %v", record.Pair, err)
		span.RecordError(err)
		return
	}

	record.PreviousRate = &hist.Previous
	record.Change = &hist.Change
	record.ChangePercent = &hist.ChangePercent
	record.MonthHigh = &hist.MonthHigh
	record.MonthLow = &hist.MonthLow
	record.MonthAvg = &hist.MonthAvg
}

// CollectAll resolves every target currency in order.
func (c *RateCollector) CollectAll(ctx context.Context, targets []string) domain.RateBatch {
	ctx, span := c.tracer.Start(ctx, "collect.rates")
	defer span.End()
	span.SetAttributes(attribute.Int("pair_count", len(targets)))

	batch := domain.RateBatch{
		Rates:       make(map[string]*domain.RateRecord, len(targets)),
		CollectedAt: time.Now().UTC(),
	}

	for i, target := range targets {
		if i > 0 && c.pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.pause):
			}
		}

		record := c.Collect(ctx, target)
		batch.Rates[target] = record
		if record.Success {
			batch.Successful++
		} else {
			batch.Failed++
		}
	}

	span.SetAttributes(
		attribute.Int("successful", batch.Successful),
		attribute.Int("failed", batch.Failed),
	)
	return batch
}
