// Package rfp turns a raw RFP document into an answered question list:
// the generation model extracts the questions, and each one runs through
// the retrieval-augmented answering pipeline.
package rfp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/themxgroup/launchpad/internal/llm"
	"github.com/themxgroup/launchpad/internal/llmutil"
)

const breakdownSystemPrompt = `You are an expert at analyzing RFP (Request for Proposal) documents.
Extract every question, requirement, or request for information that a vendor must respond to.
Rephrase each as a standalone question that can be answered without reading the RFP.
Respond with a JSON array of strings and nothing else.`

// Breakdown extracts the list of questions a vendor must answer from raw
// RFP text, in document order.
func Breakdown(ctx context.Context, provider llm.Provider, rfpText string) ([]string, error) {
	if strings.TrimSpace(rfpText) == "" {
		return nil, fmt.Errorf("rfp text: %w", llm.ErrInvalidInput)
	}

	maxTokens := 4096
	resp, err := provider.Complete(ctx,
		llm.UserPrompt(breakdownSystemPrompt, "RFP document:\n\n"+rfpText),
		&llm.RequestOptions{MaxTokens: &maxTokens},
	)
	if err != nil {
		return nil, fmt.Errorf("extracting questions: %w", err)
	}

	var questions []string
	raw := llmutil.ExtractJSONArray(resp.Content)
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("parsing question list: %w", err)
	}

	out := questions[:0]
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no questions found in RFP")
	}
	return out, nil
}
