package llm

import "strings"

// StripThinkingTags removes <think>...</think> blocks from model output.
// Some open-weight models wrap their reasoning in these tags even when
// asked for a plain answer.
func StripThinkingTags(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s, "</think>")
		if end == -1 {
			s = strings.TrimSpace(s[:start])
			break
		}
		s = s[:start] + s[end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}
