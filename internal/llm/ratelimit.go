package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitConfig configures client-side rate limiting for a provider.
// Embedding and completion calls share the same budget since hosted APIs
// meter them against one account.
type RateLimitConfig struct {
	// RequestsPerMinute limits the number of API calls per minute (0 = unlimited)
	RequestsPerMinute int
	// TokensPerMinute limits total tokens per minute (0 = unlimited)
	TokensPerMinute int
	// BurstSize allows a temporary burst above the request rate
	BurstSize int
}

// DefaultRateLimitConfig returns conservative defaults for free-tier APIs.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerMinute: 25,
		TokensPerMinute:   25000,
		BurstSize:         3,
	}
}

// RateLimitProvider wraps a provider with a token-bucket rate limiter.
type RateLimitProvider struct {
	inner  Provider
	config *RateLimitConfig

	mu            sync.Mutex
	requestTokens int       // available request permits
	tokenBudget   int       // remaining completion tokens in this window
	lastRefill    time.Time // last permit refill
	windowStart   time.Time // start of the current one-minute window
}

// NewRateLimitProvider creates a rate-limited provider wrapper.
func NewRateLimitProvider(inner Provider, config *RateLimitConfig) *RateLimitProvider {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	burst := config.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &RateLimitProvider{
		inner:         inner,
		config:        config,
		requestTokens: burst,
		tokenBudget:   config.TokensPerMinute,
		lastRefill:    time.Now(),
		windowStart:   time.Now(),
	}
}

// Name returns the underlying provider name.
func (r *RateLimitProvider) Name() string {
	return r.inner.Name()
}

// Complete waits for capacity, delegates, and records token usage.
func (r *RateLimitProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	if err := r.waitForCapacity(ctx); err != nil {
		return nil, err
	}

	resp, err := r.inner.Complete(ctx, prompt, opts)
	if err == nil && resp != nil {
		r.trackTokenUsage(resp.InputTokens + resp.OutputTokens)
	}
	return resp, err
}

// Embed waits for capacity and delegates.
func (r *RateLimitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.waitForCapacity(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}

// waitForCapacity blocks until the limiter allows a request.
func (r *RateLimitProvider) waitForCapacity(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()

		if r.config.RequestsPerMinute == 0 && r.config.TokensPerMinute == 0 {
			r.mu.Unlock()
			return nil
		}

		hasRequest := r.config.RequestsPerMinute == 0 || r.requestTokens > 0
		hasTokens := r.config.TokensPerMinute == 0 || r.tokenBudget > 0

		if hasRequest && hasTokens {
			if r.config.RequestsPerMinute > 0 {
				r.requestTokens--
			}
			r.mu.Unlock()
			return nil
		}

		wait := r.waitTime()
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// refill adds request permits for elapsed time and resets the token window
// once a minute has passed. Caller holds r.mu.
func (r *RateLimitProvider) refill() {
	now := time.Now()

	if r.config.RequestsPerMinute > 0 {
		added := int(now.Sub(r.lastRefill).Minutes() * float64(r.config.RequestsPerMinute))
		if added > 0 {
			r.requestTokens += added
			burst := r.config.BurstSize
			if burst <= 0 {
				burst = 1
			}
			if r.requestTokens > burst {
				r.requestTokens = burst
			}
		}
	}

	if now.Sub(r.windowStart) >= time.Minute {
		r.windowStart = now
		r.tokenBudget = r.config.TokensPerMinute
	}

	r.lastRefill = now
}

func (r *RateLimitProvider) trackTokenUsage(tokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokenBudget -= tokens
	if r.tokenBudget < 0 {
		r.tokenBudget = 0
	}
}

// waitTime estimates how long until capacity frees up. Caller holds r.mu.
func (r *RateLimitProvider) waitTime() time.Duration {
	if r.config.RequestsPerMinute > 0 && r.requestTokens <= 0 {
		perSecond := float64(r.config.RequestsPerMinute) / 60.0
		return time.Duration(float64(time.Second) / perSecond)
	}

	if r.config.TokensPerMinute > 0 && r.tokenBudget <= 0 {
		if remaining := time.Minute - time.Since(r.windowStart); remaining > 0 {
			return remaining
		}
	}

	return 100 * time.Millisecond
}
