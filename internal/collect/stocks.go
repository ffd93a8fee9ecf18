package collect

import (
	"context"
	"log"
	"time"

	"marketpulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// QuoteSource fetches the canonical quote for one symbol.
type QuoteSource interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// QuoteStep pairs a quote source with the retry policy it runs under.
type QuoteStep struct {
	Source QuoteSource
	Policy RetryPolicy
}

// StockCollector resolves stock quotes through an ordered source chain
// and runs symbol batches strictly sequentially.
type StockCollector struct {
	tracer trace.Tracer
	steps  []QuoteStep
	pause  time.Duration
}

func NewStockCollector(tracer trace.Tracer, steps []QuoteStep, pause time.Duration) *StockCollector {
	return &StockCollector{tracer: tracer, steps: steps, pause: pause}
}

// Collect resolves one symbol. It never returns an error: exhaustion
// produces a failure record so a bad symbol cannot poison the batch.
func (c *StockCollector) Collect(ctx context.Context, symbol string) *domain.Quote {
	ctx, span := c.tracer.Start(ctx, "collect.stock")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	steps := make([]Step[*domain.Quote], 0, len(c.steps))
	for _, s := range c.steps {
		src := s.Source
		steps = append(steps, Step[*domain.Quote]{
			Name:   src.Name(),
			Policy: s.Policy,
			Fetch: func(ctx context.Context) (*domain.Quote, error) {
				return src.FetchQuote(ctx, symbol)
			},
		})
	}

	quote, source, err := NewChain("quote", steps...).Resolve(ctx, symbol)
	if err != nil {
		span.RecordError(err)
		return &domain.Quote{
			Symbol:    symbol,
			Success:   false,
			Error:     ReasonAllSourcesFailed,
			FetchedAt: time.Now().UTC(),
		}
	}

	quote.Symbol = symbol
	quote.Source = source
	quote.Success = true
	quote.FetchedAt = time.Now().UTC()
	span.SetAttributes(attribute.String("source", source))
	return quote
}

// CollectMany resolves every symbol in order, pausing between symbols to
// stay under the free-tier request budgets of the upstream APIs.
func (c *StockCollector) CollectMany(ctx context.Context, symbols []string) domain.QuoteBatch {
	ctx, span := c.tracer.Start(ctx, "collect.stocks")
	defer span.End()
	span.SetAttributes(attribute.Int("symbol_count", len(symbols)))

	batch := domain.QuoteBatch{
		Quotes:      make(map[string]*domain.Quote, len(symbols)),
		CollectedAt: time.Now().UTC(),
	}

	for i, symbol := range symbols {
		if i > 0 && c.pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.pause):
			}
		}

		quote := c.Collect(ctx, symbol)
		batch.Quotes[symbol] = quote
		if quote.Success {
			batch.Successful++
		} else {
			batch.Failed++
		}

		if ctx.Err() != nil && i < len(symbols)-1 {
			log.Printf("stock collection cancelled after %d/%d symbols: %v", i+1, len(symbols), ctx.Err())
			for _, rest := range symbols[i+1:] {
				batch.Quotes[rest] = &domain.Quote{
					Symbol:    rest,
					Success:   false,
					Error:     ReasonAllSourcesFailed,
					FetchedAt: time.Now().UTC(),
				}
				batch.Failed++
			}
			break
		}
	}

	span.SetAttributes(
		attribute.Int("successful", batch.Successful),
		attribute.Int("failed", batch.Failed),
	)
	return batch
}
