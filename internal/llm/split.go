package llm

import "context"

// splitProvider routes completion and embedding calls to different
// underlying providers. Anthropic has no embedding endpoint, so a common
// deployment answers with one provider and embeds with another.
type splitProvider struct {
	gen   Provider
	embed Provider
}

// Split returns a provider that completes with gen and embeds with embed.
// When both are the same provider it is returned unwrapped.
func Split(gen, embed Provider) Provider {
	if gen == embed {
		return gen
	}
	return &splitProvider{gen: gen, embed: embed}
}

func (s *splitProvider) Name() string {
	return s.gen.Name() + "+" + s.embed.Name()
}

func (s *splitProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	return s.gen.Complete(ctx, prompt, opts)
}

func (s *splitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return s.embed.Embed(ctx, texts)
}
