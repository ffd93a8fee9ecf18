package collect

import (
	"context"
	"time"

	"marketpulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MacroSource fetches one macroeconomic series by its upstream ID.
type MacroSource interface {
	Name() string
	Configured() bool
	FetchSeries(ctx context.Context, name, seriesID string) (*domain.MacroRecord, error)
}

// VIXSource fetches the volatility index from market data, used both as
// a fallback for the primary source and as the sole series in keyless
// degraded mode.
type VIXSource interface {
	Name() string
	FetchVIX(ctx context.Context) (*domain.MacroRecord, error)
}

// DegradedModeNote explains a keyless macro collection.
const DegradedModeNote = "macro API key not configured - VIX only"

// MacroCollector gathers the configured macro series. Without a primary
// source key it degrades to VIX-only rather than failing.
type MacroCollector struct {
	tracer trace.Tracer
	source MacroSource
	vix    VIXSource
	series []domain.MacroSeries
	policy RetryPolicy
	pause  time.Duration
}

func NewMacroCollector(tracer trace.Tracer, source MacroSource, vix VIXSource, series []domain.MacroSeries, policy RetryPolicy, pause time.Duration) *MacroCollector {
	return &MacroCollector{tracer: tracer, source: source, vix: vix, series: series, policy: policy, pause: pause}
}

// Collect fetches every configured series in declared order.
func (c *MacroCollector) Collect(ctx context.Context) domain.MacroBatch {
	ctx, span := c.tracer.Start(ctx, "collect.macro")
	defer span.End()

	if c.source == nil || !c.source.Configured() {
		return c.collectDegraded(ctx, span)
	}

	batch := domain.MacroBatch{
		Indicators:  make(map[string]*domain.MacroRecord, len(c.series)),
		CollectedAt: time.Now().UTC(),
	}

	for i, s := range c.series {
		if i > 0 && c.pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.pause):
			}
		}

		record := c.collectOne(ctx, s)
		batch.Indicators[s.Name] = record
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

func (c *MacroCollector) collectOne(ctx context.Context, s domain.MacroSeries) *domain.MacroRecord {
	ctx, span := c.tracer.Start(ctx, "collect.macro-series")
	defer span.End()
	span.SetAttributes(attribute.String("series", s.Name), attribute.String("series_id", s.ID))

	steps := []Step[*domain.MacroRecord]{{
		Name:   c.source.Name(),
		Policy: c.policy,
		Fetch: func(ctx context.Context) (*domain.MacroRecord, error) {
			return c.source.FetchSeries(ctx, s.Name, s.ID)
		},
	}}
	// VIX has a market-data fallback; the other series do not.
	if s.Name == domain.MacroVIX && c.vix != nil {
		steps = append(steps, Step[*domain.MacroRecord]{
			Name:   c.vix.Name(),
			Policy: c.policy,
			Fetch: func(ctx context.Context) (*domain.MacroRecord, error) {
				return c.vix.FetchVIX(ctx)
			},
		})
	}

	record, source, err := NewChain("macro", steps...).Resolve(ctx, s.Name)
	if err != nil {
		span.RecordError(err)
		return &domain.MacroRecord{
			Name:      s.Name,
			SeriesID:  s.ID,
			Success:   false,
			Error:     ReasonAllSourcesFailed,
			FetchedAt: time.Now().UTC(),
		}
	}

	record.Name = s.Name
	record.Source = source
	record.Success = true
	record.FetchedAt = time.Now().UTC()
	return record
}

func (c *MacroCollector) collectDegraded(ctx context.Context, span trace.Span) domain.MacroBatch {
	span.SetAttributes(attribute.Bool("degraded", true))

	batch := domain.MacroBatch{
		Indicators:  make(map[string]*domain.MacroRecord, 1),
		Degraded:    true,
		Note:        DegradedModeNote,
		CollectedAt: time.Now().UTC(),
	}
	if c.vix == nil {
		return batch
	}

	var record *domain.MacroRecord
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		r, err := c.vix.FetchVIX(ctx)
		if err != nil {
			return err
		}
		record = r
		return nil
	})
	if err != nil {
		span.RecordError(err)
		batch.Indicators[domain.MacroVIX] = &domain.MacroRecord{
			Name:      domain.MacroVIX,
			Success:   false,
			Error:     ReasonAllSourcesFailed,
			FetchedAt: time.Now().UTC(),
		}
		batch.Failed++
		return batch
	}

	record.Name = domain.MacroVIX
	record.Source = c.vix.Name()
	record.Success = true
	record.FetchedAt = time.Now().UTC()
	batch.Indicators[domain.MacroVIX] = record
	batch.Successful++
	return batch
}
