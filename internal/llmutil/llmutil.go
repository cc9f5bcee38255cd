// Package llmutil provides shared utilities for model output processing
// and provider registration used by both binaries.
package llmutil

import (
	"strings"

	"github.com/themxgroup/launchpad/internal/llm"
)

// StripMarkdownFences removes markdown code fences (``` ... ```) from model
// output. It first strips thinking tags, then removes the outermost fence
// pair if present. Models routinely fence JSON even when told not to.
func StripMarkdownFences(s string) string {
	s = llm.StripThinkingTags(s)

	lines := strings.Split(s, "\n")

	start := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i + 1
			break
		}
	}

	end := len(lines)
	for i := len(lines) - 1; i >= start; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			end = i
			break
		}
	}

	if start == 0 && end == len(lines) {
		return s
	}

	return strings.Join(lines[start:end], "\n")
}

// ExtractJSONArray returns the outermost [...] slice of s, or s unchanged
// when no array brackets are found. Used to salvage JSON from answers that
// include surrounding prose.
func ExtractJSONArray(s string) string {
	s = StripMarkdownFences(s)
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
