package router

import (
	"context"
	"errors"
	"time"

	"github.com/xpanvictor/interm/pkg/assistant"
	"github.com/xpanvictor/interm/pkg/resilience"
)

// guarded fails fast once a provider keeps erroring. Cancelled calls do
// not count as failures.
type guarded struct {
	assistant.Provider
	cb *resilience.CircuitBreaker
}

// WithBreaker wraps p in a circuit breaker named after the provider.
func WithBreaker(p assistant.Provider, maxFailures int, reset time.Duration) assistant.Provider {
	return &guarded{Provider: p, cb: resilience.NewCircuitBreaker(p.Name(), maxFailures, reset)}
}

func (g *guarded) call(ctx context.Context, fn func() (string, error)) (string, error) {
	var out string
	var callErr error
	err := g.cb.Call(func() error {
		out, callErr = fn()
		if callErr != nil && ctx.Err() != nil {
			return nil
		}
		return callErr
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "", err
	}
	return out, callErr
}

func (g *guarded) Generate(ctx context.Context, req assistant.GenerateRequest) (string, error) {
	return g.call(ctx, func() (string, error) { return g.Provider.Generate(ctx, req) })
}

func (g *guarded) Stream(ctx context.Context, req assistant.GenerateRequest, fn func(string) error) (string, error) {
	return g.call(ctx, func() (string, error) { return g.Provider.Stream(ctx, req, fn) })
}

func (g *guarded) GenerateMultimodal(ctx context.Context, req assistant.GenerateRequest, media []assistant.Media) (string, error) {
	return g.call(ctx, func() (string, error) { return g.Provider.GenerateMultimodal(ctx, req, media) })
}
