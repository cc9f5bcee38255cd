package ingest

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractFile reads a source file and returns its plain text. The extractor
// is chosen by extension: PDFs go through the PDF reader, HTML is stripped
// to text, everything else is treated as plain text.
func ExtractFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".html", ".htm":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		_, text := ExtractHTML(string(raw))
		return text, nil
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}

// extractPDF pulls the text of every page, keeping page markers so answers
// can reference where in the source a passage came from.
func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting page %d of %s: %w", i, path, err)
		}
		fmt.Fprintf(&buf, "\n--- Page %d ---\n%s", i, text)
	}
	return buf.String(), nil
}

var (
	htmlTitleRe  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlDropRe   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>|<style\b[^>]*>.*?</style>|<noscript\b[^>]*>.*?</noscript>|<header\b[^>]*>.*?</header>|<footer\b[^>]*>.*?</footer>|<nav\b[^>]*>.*?</nav>|<form\b[^>]*>.*?</form>|<aside\b[^>]*>.*?</aside>`)
	htmlBlockRe  = regexp.MustCompile(`(?i)</(p|div|li|h[1-6]|tr)>|<br\s*/?>`)
	htmlTagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// ExtractHTML strips a page down to its title and readable body text,
// removing scripts, styles, and page chrome and decoding entities.
func ExtractHTML(raw string) (title, text string) {
	if m := htmlTitleRe.FindStringSubmatch(raw); m != nil {
		title = strings.TrimSpace(html.UnescapeString(m[1]))
	}

	body := htmlDropRe.ReplaceAllString(raw, " ")
	// Keep block boundaries as newlines so chunks don't glue paragraphs.
	body = htmlBlockRe.ReplaceAllString(body, "\n")
	body = htmlTagRe.ReplaceAllString(body, " ")
	body = html.UnescapeString(body)

	body = whitespaceRe.ReplaceAllString(body, " ")
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	body = strings.Join(lines, "\n")
	body = blankLinesRe.ReplaceAllString(body, "\n\n")

	return title, strings.TrimSpace(body)
}
