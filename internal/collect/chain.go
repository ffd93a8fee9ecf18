package collect

import (
	"context"
	"fmt"
	"log"
)

// Fetch produces one normalized record or a classified error.
type Fetch[T any] func(ctx context.Context) (T, error)

// Step pairs one provider's fetch with its retry policy.
type Step[T any] struct {
	Name   string
	Policy RetryPolicy
	Fetch  Fetch[T]
}

// Chain resolves one logical entity through an ordered provider list.
// Providers are tried strictly in declared order; a later provider is
// consulted only after the earlier one's full retry budget is exhausted.
type Chain[T any] struct {
	entity string
	steps  []Step[T]
}

// NewChain builds a chain for one entity type ("quote", "rate", ...).
func NewChain[T any](entity string, steps ...Step[T]) *Chain[T] {
	return &Chain[T]{entity: entity, steps: steps}
}

// Resolve returns the first successful record together with the name of
// the source that produced it. When every step fails it returns an
// *ExhaustionError carrying the per-step causes.
func (c *Chain[T]) Resolve(ctx context.Context, identifier string) (T, string, error) {
	var zero T
	causes := make([]error, 0, len(c.steps))

	for _, step := range c.steps {
		var result T
		err := step.Policy.Do(ctx, func(ctx context.Context) error {
			v, err := step.Fetch(ctx)
			if err != nil {
				return err
			}
			result = v
			return nil
		})
		if err == nil {
			return result, step.Name, nil
		}

		log.Printf("%s source %s failed for %s (%s): %v", c.entity, step.Name, identifier, ClassOf(err), err)
		causes = append(causes, fmt.Errorf("%s: %w", step.Name, err))

		if ctx.Err() != nil {
			break
		}
	}

	return zero, "", &ExhaustionError{Entity: c.entity, Identifier: identifier, Causes: causes}
}
