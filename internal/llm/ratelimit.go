package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// RateLimited waits on limiter before every call to gen. It keeps a single
// device from burning through a hosted provider's quota.
func RateLimited(gen Generator, limiter *rate.Limiter) Generator {
	return &rateLimited{next: gen, limiter: limiter}
}

func (r *rateLimited) Name() string {
	return r.next.Name()
}

func (r *rateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Generate(ctx, prompt)
}
