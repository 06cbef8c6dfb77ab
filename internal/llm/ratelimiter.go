package llm

import (
	"context"
	"sync"
	"time"
)

// pollInterval is how often a blocked caller re-checks the bucket.
const pollInterval = 100 * time.Millisecond

// RateLimitedProvider caps outbound extraction calls to the paid vendor at a
// fixed per-minute rate. Calls beyond the budget block until the bucket
// refills or the request context is cancelled; intake requests are never
// dropped here, only delayed.
type RateLimitedProvider struct {
	provider Provider
	rpm      int

	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewRateLimitedProvider wraps the given provider, allowing at most rpm
// completion calls per minute. The bucket starts full.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{
		provider:   provider,
		rpm:        rpm,
		tokens:     rpm,
		lastRefill: time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// acquire takes one token, blocking until one is available. Refill is
// computed from elapsed time rather than a background ticker, so an idle
// limiter costs nothing.
func (r *RateLimitedProvider) acquire(ctx context.Context) error {
	for {
		if r.takeToken() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (r *RateLimitedProvider) takeToken() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	refill := int(now.Sub(r.lastRefill).Seconds() * float64(r.rpm) / 60.0)
	if refill > 0 {
		r.tokens += refill
		if r.tokens > r.rpm {
			r.tokens = r.rpm
		}
		r.lastRefill = now
	}

	if r.tokens == 0 {
		return false
	}
	r.tokens--
	return true
}
