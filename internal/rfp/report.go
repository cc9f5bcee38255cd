package rfp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/themxgroup/launchpad/internal/answer"
)

// QuestionResult pairs one RFP question with its outcome. Exactly one of
// Answer and Err is set.
type QuestionResult struct {
	Question string
	Answer   *answer.Answer
	Err      error
}

// AnswerAll runs every question through the answering pipeline. Failures
// are isolated per question: an errored question is recorded in its result
// and the batch continues.
func AnswerAll(ctx context.Context, a *answer.Answerer, questions []string, log zerolog.Logger) []QuestionResult {
	results := make([]QuestionResult, 0, len(questions))
	for i, q := range questions {
		if ctx.Err() != nil {
			break
		}
		ans, err := a.Answer(ctx, q)
		if err != nil {
			log.Error().Err(err).Int("question", i+1).Msg("question failed")
			results = append(results, QuestionResult{Question: q, Err: err})
			continue
		}
		results = append(results, QuestionResult{Question: q, Answer: ans})
	}
	return results
}

// Report renders the batch as a markdown document: answered questions with
// provenance, then a section for anything that failed or had no grounding.
func Report(title string, results []QuestionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	answered, unanswered := 0, 0
	for _, r := range results {
		if r.Err == nil && !r.Answer.NoContext {
			answered++
		} else {
			unanswered++
		}
	}
	fmt.Fprintf(&b, "%d of %d questions answered from the knowledge base.\n\n", answered, len(results))

	n := 0
	for _, r := range results {
		if r.Err != nil || r.Answer.NoContext {
			continue
		}
		n++
		fmt.Fprintf(&b, "## %d. %s\n\n%s\n\n", n, r.Question, r.Answer.Text)

		seen := map[string]bool{}
		var sources []string
		for _, m := range r.Answer.Matches {
			s := m.Source()
			if !seen[s] {
				seen[s] = true
				sources = append(sources, fmt.Sprintf("%s (relevance: %.3f)", s, m.Score))
			}
		}
		if len(sources) > 0 {
			fmt.Fprintf(&b, "*Sources: %s*\n\n", strings.Join(sources, "; "))
		}
	}

	if unanswered > 0 {
		b.WriteString("## Needs manual review\n\n")
		for _, r := range results {
			switch {
			case r.Err != nil:
				fmt.Fprintf(&b, "- %s (failed: %v)\n", r.Question, r.Err)
			case r.Answer.NoContext:
				fmt.Fprintf(&b, "- %s (no relevant material in the knowledge base)\n", r.Question)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
