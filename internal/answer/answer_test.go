package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/themxgroup/launchpad/internal/llm"
	"github.com/themxgroup/launchpad/internal/vector"
)

// scriptedProvider records calls and returns canned results.
type scriptedProvider struct {
	completeCalls int
	embedCalls    int
	lastPrompt    *llm.Prompt
	completion    string
	embedErr      error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, prompt *llm.Prompt, _ *llm.RequestOptions) (*llm.Response, error) {
	p.completeCalls++
	p.lastPrompt = prompt
	return &llm.Response{Content: p.completion}, nil
}

func (p *scriptedProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.embedCalls++
	if p.embedErr != nil {
		return nil, p.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

// scriptedStore returns a fixed ranked match list.
type scriptedStore struct {
	matches  []vector.Match
	queryErr error
	lastTopK int
}

func (s *scriptedStore) Upsert(_ context.Context, records []vector.Record) (int, error) {
	return len(records), nil
}

func (s *scriptedStore) Query(_ context.Context, _ []float32, topK int) ([]vector.Match, error) {
	s.lastTopK = topK
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if topK < len(s.matches) {
		return s.matches[:topK], nil
	}
	return s.matches, nil
}

func (s *scriptedStore) Close() error { return nil }

func rankedMatches(n int) []vector.Match {
	out := make([]vector.Match, n)
	for i := range out {
		out[i] = vector.Match{
			ID:       fmt.Sprintf("doc_chunk_%d", i),
			Score:    float32(0.9) - float32(i)*0.1,
			Text:     fmt.Sprintf("passage %d about campaigns", i),
			Metadata: map[string]string{vector.MetaSource: "deck.pdf"},
		}
	}
	return out
}

func TestAnswer_EmptyStoreShortCircuits(t *testing.T) {
	provider := &scriptedProvider{completion: "should never be used"}
	store := &scriptedStore{}
	a := New(provider, store, DefaultConfig(), zerolog.Nop())

	ans, err := a.Answer(context.Background(), "unrelated question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ans.NoContext {
		t.Error("expected NoContext answer")
	}
	if ans.Text != NoContextAnswer {
		t.Errorf("text = %q, want the no-context response", ans.Text)
	}
	if provider.completeCalls != 0 {
		t.Errorf("generation model called %d times, want 0", provider.completeCalls)
	}
	if provider.embedCalls != 1 {
		t.Errorf("embed calls = %d, want 1", provider.embedCalls)
	}
}

func TestAnswer_GroundedGeneration(t *testing.T) {
	provider := &scriptedProvider{completion: "According to Source 1, we run integrated campaigns."}
	store := &scriptedStore{matches: rankedMatches(3)}
	cfg := DefaultConfig()
	cfg.TopK = 3
	a := New(provider, store, cfg, zerolog.Nop())

	ans, err := a.Answer(context.Background(), "What campaigns do you run?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.NoContext {
		t.Fatal("expected a grounded answer")
	}
	if len(ans.Matches) != 3 {
		t.Errorf("answer carries %d matches, want 3", len(ans.Matches))
	}
	if store.lastTopK != 3 {
		t.Errorf("store queried with topK=%d, want 3", store.lastTopK)
	}

	// The prompt must embed the retrieved passages and the question.
	content := provider.lastPrompt.Messages[0].Content
	for _, want := range []string{"[Source 1: deck.pdf", "passage 0 about campaigns", "What campaigns do you run?"} {
		if !strings.Contains(content, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnswer_RelevanceFloor(t *testing.T) {
	provider := &scriptedProvider{completion: "grounded"}
	store := &scriptedStore{matches: rankedMatches(5)} // scores 0.9 .. 0.5
	cfg := DefaultConfig()
	cfg.TopK = 5
	cfg.MinScore = 0.75
	a := New(provider, store, cfg, zerolog.Nop())

	ans, err := a.Answer(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ans.Matches) != 2 {
		t.Errorf("floor kept %d matches, want 2", len(ans.Matches))
	}
}

func TestAnswer_FloorDropsEverything(t *testing.T) {
	provider := &scriptedProvider{completion: "should never be used"}
	store := &scriptedStore{matches: rankedMatches(2)}
	cfg := DefaultConfig()
	cfg.MinScore = 0.99
	a := New(provider, store, cfg, zerolog.Nop())

	ans, err := a.Answer(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ans.NoContext || provider.completeCalls != 0 {
		t.Error("all matches below floor should short-circuit generation")
	}
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	a := New(&scriptedProvider{}, &scriptedStore{}, DefaultConfig(), zerolog.Nop())
	_, err := a.Answer(context.Background(), "   ")
	if !errors.Is(err, llm.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestAnswer_PropagatesStoreErrors(t *testing.T) {
	store := &scriptedStore{queryErr: fmt.Errorf("dial: %w", vector.ErrUnavailable)}
	a := New(&scriptedProvider{}, store, DefaultConfig(), zerolog.Nop())

	_, err := a.Answer(context.Background(), "question")
	if !errors.Is(err, vector.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestFormatContext_OrderAndBudget(t *testing.T) {
	matches := rankedMatches(4)
	full := FormatContext(matches, 0)

	// Highest score renders first.
	if !strings.HasPrefix(full, "[Source 1: deck.pdf (relevance: 0.900)]") {
		t.Errorf("context does not start with the top match:\n%s", full)
	}
	idx2 := strings.Index(full, "passage 1")
	idx3 := strings.Index(full, "passage 2")
	if idx2 == -1 || idx3 == -1 || idx2 > idx3 {
		t.Error("context blocks out of rank order")
	}

	// A tight budget drops lowest-ranked entries, never the top one.
	tight := FormatContext(matches, len(full)/2)
	if !strings.Contains(tight, "passage 0") {
		t.Error("budget truncation dropped the top-ranked match")
	}
	if strings.Contains(tight, "passage 3") {
		t.Error("budget truncation kept the lowest-ranked match")
	}
	if len(tight) > len(full)/2 {
		t.Errorf("context length %d exceeds budget %d", len(tight), len(full)/2)
	}
}

func TestFormatContext_OversizedTopMatchTruncated(t *testing.T) {
	matches := []vector.Match{{
		ID:       "doc_chunk_0",
		Score:    0.9,
		Text:     strings.Repeat("campaign strategy details. ", 50),
		Metadata: map[string]string{vector.MetaSource: "deck.pdf"},
	}}

	budget := 120
	got := FormatContext(matches, budget)
	if got == "" {
		t.Fatal("top match larger than the budget produced empty context")
	}
	if len(got) > budget {
		t.Errorf("context length %d exceeds budget %d", len(got), budget)
	}
	if !strings.HasPrefix(got, "[Source 1: deck.pdf") {
		t.Errorf("truncated context lost its source header:\n%s", got)
	}
}
