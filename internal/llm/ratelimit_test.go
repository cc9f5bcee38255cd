package llm

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitProvider_Unlimited(t *testing.T) {
	inner := &mockProvider{
		name:      "test",
		responses: []*Response{{Content: "a"}, {Content: "b"}, {Content: "c"}},
	}
	r := NewRateLimitProvider(inner, &RateLimitConfig{})

	for i := 0; i < 3; i++ {
		if _, err := r.Complete(context.Background(), &Prompt{}, nil); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRateLimitProvider_BurstThenBlocks(t *testing.T) {
	inner := &mockProvider{
		name: "test",
		responses: []*Response{
			{Content: "a"}, {Content: "b"}, {Content: "c"},
		},
	}
	r := NewRateLimitProvider(inner, &RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         2,
	})

	// Two calls fit in the burst.
	for i := 0; i < 2; i++ {
		if _, err := r.Complete(context.Background(), &Prompt{}, nil); err != nil {
			t.Fatalf("burst call %d: %v", i, err)
		}
	}

	// The third must wait for a refill; a cancelled context surfaces
	// instead of blocking the test.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Complete(ctx, &Prompt{}, nil); err == nil {
		t.Fatal("expected context deadline while throttled")
	}
	if inner.calls != 2 {
		t.Errorf("throttled call should not reach provider, calls = %d", inner.calls)
	}
}

func TestRateLimitProvider_TokenBudget(t *testing.T) {
	inner := &mockProvider{
		name: "test",
		responses: []*Response{
			{Content: "big", InputTokens: 600, OutputTokens: 500},
			{Content: "small"},
		},
	}
	r := NewRateLimitProvider(inner, &RateLimitConfig{
		TokensPerMinute: 1000,
	})

	if _, err := r.Complete(context.Background(), &Prompt{}, nil); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// The first response exhausted the window's token budget.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Complete(ctx, &Prompt{}, nil); err == nil {
		t.Fatal("expected context deadline after budget exhausted")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}

func TestRateLimitProvider_Name(t *testing.T) {
	r := NewRateLimitProvider(&mockProvider{name: "inner"}, nil)
	if r.Name() != "inner" {
		t.Errorf("name = %q", r.Name())
	}
}
