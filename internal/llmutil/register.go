package llmutil

import (
	"github.com/themxgroup/launchpad/internal/llm"
	"github.com/themxgroup/launchpad/internal/llm/anthropic"
	"github.com/themxgroup/launchpad/internal/llm/openai"
)

// RegisterDefaultProviders registers all built-in provider constructors
// (anthropic, openai, and the OpenAI-compatible presets) into factory.
// Both cmd/launchpad and cmd/worker call this to avoid duplicating
// registration logic across binaries.
func RegisterDefaultProviders(factory *llm.ProviderFactory) {
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c.APIKey, c.Model, c.BaseURL), nil
	})
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel), nil
	})
	for _, p := range []struct{ name, url string }{
		{"groq", llm.KnownProviders["groq"]},
		{"ollama", llm.KnownProviders["ollama"]},
		{"together", llm.KnownProviders["together"]},
		{"custom", ""},
	} {
		p := p
		factory.Register(p.name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = p.url
			}
			return openai.New(c.APIKey, c.Model, base, c.EmbedModel), nil
		})
	}
}
