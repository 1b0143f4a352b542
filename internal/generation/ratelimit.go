package generation

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedBackend spaces out calls to a hosted endpoint. Callers wait for a
// token; a caller whose context ends while waiting gets a request failure.
type RateLimitedBackend struct {
	backend Backend
	limiter *rate.Limiter
}

func NewRateLimitedBackend(backend Backend, rps float64, burst int) *RateLimitedBackend {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedBackend{
		backend: backend,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (b *RateLimitedBackend) Name() string {
	return b.backend.Name()
}

func (b *RateLimitedBackend) Generate(ctx context.Context, prompt string) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", newGenerationError(b.Name(), OpRequest, fmt.Errorf("rate limit wait failed: %w", err))
	}
	return b.backend.Generate(ctx, prompt)
}
