// Package answer implements retrieval-augmented answering: embed the
// question, retrieve the nearest chunks, and ground a single generation
// call in that context.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/themxgroup/launchpad/internal/llm"
	"github.com/themxgroup/launchpad/internal/observability"
	"github.com/themxgroup/launchpad/internal/vector"
)

// NoContextAnswer is returned verbatim when retrieval finds nothing
// relevant. The generation model is deliberately not called in that case,
// so it cannot hallucinate an answer from nothing.
const NoContextAnswer = "I couldn't find any relevant information in the knowledge base to answer this question."

const systemPrompt = `You are a helpful assistant that answers questions based on the provided context from RFP documents and marketing materials.

Instructions:
- Answer the question using ONLY the information provided in the context
- If the context contains relevant information, provide a detailed and well-structured answer
- If the context doesn't contain enough information to answer the question, say so clearly
- Cite which sources you're using when relevant (e.g. "According to Source 1...")
- Be professional and concise
- If multiple sources provide similar information, synthesize them into a coherent answer`

// Config holds the retrieval and generation knobs.
type Config struct {
	TopK         int     // matches requested from the store
	MinScore     float32 // relevance floor; matches below it are discarded (0 = keep all)
	ContextChars int     // generation input budget for the context block
	MaxTokens    int     // completion budget
	Temperature  float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TopK:         5,
		MinScore:     0,
		ContextChars: 24000,
		MaxTokens:    1000,
		Temperature:  0.7,
	}
}

// Answer is the pipeline's output: the generated text plus the matches it
// was grounded in, so callers can show provenance.
type Answer struct {
	Question  string
	Text      string
	Matches   []vector.Match
	NoContext bool
}

// Answerer runs the retrieval-augmented answering pipeline with injected
// provider and store.
type Answerer struct {
	provider llm.Provider
	store    vector.Store
	cfg      Config
	log      zerolog.Logger
}

// New creates an Answerer.
func New(provider llm.Provider, store vector.Store, cfg Config, log zerolog.Logger) *Answerer {
	if cfg.TopK == 0 {
		cfg = DefaultConfig()
	}
	return &Answerer{provider: provider, store: store, cfg: cfg, log: log}
}

// Answer embeds the question, retrieves the topK most similar chunks,
// and generates a grounded answer. An empty result set after the relevance
// floor short-circuits without a generation call.
func (a *Answerer) Answer(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question: %w", llm.ErrInvalidInput)
	}

	start := time.Now()
	defer func() {
		observability.Default().AnswerDuration.Observe(time.Since(start).Seconds())
	}()
	observability.Default().QueriesAnswered.Inc()

	matches, err := a.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		observability.Default().NoContextAnswers.Inc()
		a.log.Info().Str("question", question).Msg("no relevant context, skipping generation")
		return &Answer{Question: question, Text: NoContextAnswer, NoContext: true}, nil
	}

	text, err := a.generate(ctx, question, matches)
	if err != nil {
		return nil, err
	}

	return &Answer{Question: question, Text: text, Matches: matches}, nil
}

func (a *Answerer) retrieve(ctx context.Context, question string) ([]vector.Match, error) {
	ctx, span := observability.StartRetrievalSpan(ctx, a.cfg.TopK)
	defer span.End()

	vecs, err := a.provider.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding question: got %d vectors, want 1", len(vecs))
	}

	matches, err := a.store.Query(ctx, vecs[0], a.cfg.TopK)
	if err != nil {
		observability.Default().StoreOperations.WithLabelValues("query", "error").Inc()
		return nil, fmt.Errorf("querying store: %w", err)
	}
	observability.Default().StoreOperations.WithLabelValues("query", "ok").Inc()

	// Results arrive ranked; the floor only trims the tail.
	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= a.cfg.MinScore {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

func (a *Answerer) generate(ctx context.Context, question string, matches []vector.Match) (string, error) {
	ctx, span := observability.StartGenerationSpan(ctx, a.provider.Name())
	defer span.End()

	prompt := fmt.Sprintf("Context from relevant documents:\n\n%s\n---\n\nQuestion: %s\n\nAnswer:",
		FormatContext(matches, a.cfg.ContextChars), question)

	resp, err := a.provider.Complete(ctx, llm.UserPrompt(systemPrompt, prompt), &llm.RequestOptions{
		MaxTokens:   &a.cfg.MaxTokens,
		Temperature: &a.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	return llm.StripThinkingTags(resp.Content), nil
}

// FormatContext renders matches as numbered source blocks, highest score
// first, truncated to fit budget characters. Truncation drops whole
// lowest-ranked entries first rather than cutting a block mid-sentence.
// The top match is never dropped outright: when it alone exceeds the
// budget it is cut to fit, so generation always sees some context.
func FormatContext(matches []vector.Match, budget int) string {
	var b strings.Builder
	for i, m := range matches {
		block := fmt.Sprintf("[Source %d: %s (relevance: %.3f)]\n%s\n\n", i+1, m.Source(), m.Score, m.Text)
		if budget > 0 && b.Len()+len(block) > budget {
			if i == 0 {
				b.WriteString(block[:budget])
			}
			break
		}
		b.WriteString(block)
	}
	return strings.TrimRight(b.String(), "\n")
}
