package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewFactory(t *testing.T) {
	f := NewFactory()
	if f == nil {
		t.Fatal("expected non-nil factory")
	}
	if len(f.constructors) != 0 {
		t.Fatalf("expected empty factory, got %d constructors", len(f.constructors))
	}
}

func TestFactoryCreate_EmptyProvider(t *testing.T) {
	f := NewFactory()

	if _, err := f.Create(ProviderConfig{Provider: ""}); err == nil {
		t.Fatal("expected error for unconfigured provider")
	}
}

func TestFactoryCreate_UnknownProvider(t *testing.T) {
	f := NewFactory()
	f.Register("provider1", func(cfg ProviderConfig) (Provider, error) {
		return &mockProvider{name: "provider1"}, nil
	})

	_, err := f.Create(ProviderConfig{Provider: "unknown"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "provider1") {
		t.Errorf("error should list registered providers: %v", err)
	}
}

func TestFactoryCreate_WrapsWithRetry(t *testing.T) {
	f := NewFactory()
	f.Register("test", func(cfg ProviderConfig) (Provider, error) {
		return &mockProvider{name: "test"}, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*RetryProvider); !ok {
		t.Errorf("expected retry wrapper, got %T", p)
	}
}

func TestFactoryCreate_WrapsWithRateLimit(t *testing.T) {
	f := NewFactory()
	f.Register("test", func(cfg ProviderConfig) (Provider, error) {
		return &mockProvider{name: "test"}, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "test", RequestsPerMinute: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*RateLimitProvider); !ok {
		t.Errorf("expected rate limit wrapper, got %T", p)
	}
}

func TestFactoryCreate_ConstructorError(t *testing.T) {
	f := NewFactory()
	ctorErr := errors.New("constructor failed")
	f.Register("failing", func(cfg ProviderConfig) (Provider, error) {
		return nil, ctorErr
	})

	if _, err := f.Create(ProviderConfig{Provider: "failing"}); !errors.Is(err, ctorErr) {
		t.Fatalf("expected constructor error, got %v", err)
	}
}

func TestFactoryCreate_PassesConfig(t *testing.T) {
	f := NewFactory()
	var got ProviderConfig
	f.Register("test", func(cfg ProviderConfig) (Provider, error) {
		got = cfg
		return &mockProvider{name: "test"}, nil
	})

	cfg := DefaultProviderConfig()
	cfg.Provider = "test"
	cfg.APIKey = "sk-key"
	cfg.Model = "gpt-4o"
	cfg.EmbedModel = "text-embedding-3-small"

	if _, err := f.Create(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.APIKey != "sk-key" || got.Model != "gpt-4o" || got.EmbedModel != "text-embedding-3-small" {
		t.Errorf("config not passed through: %+v", got)
	}
}

func TestSplit(t *testing.T) {
	gen := &mockProvider{name: "gen", responses: []*Response{{Content: "answer"}}}
	embed := &mockProvider{name: "embed", embedResponses: [][][]float32{{{1}}}}

	p := Split(gen, embed)
	if p.Name() != "gen+embed" {
		t.Errorf("name = %q", p.Name())
	}

	if _, err := p.Complete(context.Background(), &Prompt{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Embed(context.Background(), []string{"t"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 1 || gen.embedCalls != 0 {
		t.Errorf("gen calls = %d/%d", gen.calls, gen.embedCalls)
	}
	if embed.calls != 0 || embed.embedCalls != 1 {
		t.Errorf("embed calls = %d/%d", embed.calls, embed.embedCalls)
	}
}

func TestSplit_SameProviderUnwrapped(t *testing.T) {
	p := &mockProvider{name: "one"}
	if got := Split(p, p); got != Provider(p) {
		t.Errorf("expected the provider itself, got %T", got)
	}
}
