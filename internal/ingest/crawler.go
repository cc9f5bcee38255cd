package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CrawlConfig bounds a website crawl.
type CrawlConfig struct {
	MaxPages  int // hard cap on pages fetched
	MaxChars  int // total extracted characters before the crawl stops
	Timeout   time.Duration
	UserAgent string
}

// DefaultCrawlConfig returns safety rails suitable for a marketing site.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		MaxPages:  600,
		MaxChars:  3_000_000,
		Timeout:   15 * time.Second,
		UserAgent: "launchpad-ingest/1.0",
	}
}

// Crawler walks a site breadth-first, staying on the start host, and feeds
// each page's extracted text through the ingestion pipeline as one document.
type Crawler struct {
	pipeline *Pipeline
	cfg      CrawlConfig
	client   *http.Client
	log      zerolog.Logger
}

// NewCrawler creates a Crawler over an existing pipeline.
func NewCrawler(pipeline *Pipeline, cfg CrawlConfig, log zerolog.Logger) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg = DefaultCrawlConfig()
	}
	return &Crawler{
		pipeline: pipeline,
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      log,
	}
}

var (
	hrefRe = regexp.MustCompile(`(?i)href\s*=\s*["']([^"'#]+)["']`)

	skipExtensions = []string{
		".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
		".mp4", ".mp3", ".zip", ".gz", ".doc", ".docx", ".ppt", ".pptx",
		".xls", ".xlsx", ".css", ".js",
	}
)

// Crawl ingests the site rooted at startURL and returns the batch summary.
// Pages that fail to fetch or ingest are counted and skipped.
func (c *Crawler) Crawl(ctx context.Context, startURL string) (BatchResult, error) {
	root, err := url.Parse(startURL)
	if err != nil || root.Host == "" {
		return BatchResult{}, fmt.Errorf("invalid start URL %q", startURL)
	}

	queue := []string{normalizeURL(root, startURL)}
	seen := map[string]bool{queue[0]: true}

	var batch BatchResult
	totalChars := 0

	for len(queue) > 0 && len(seen) <= c.cfg.MaxPages*4 {
		if len(batch.Ingested)+batch.Failed >= c.cfg.MaxPages || totalChars >= c.cfg.MaxChars {
			break
		}
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}

		pageURL := queue[0]
		queue = queue[1:]

		body, ok := c.fetch(ctx, pageURL)
		if !ok {
			continue
		}

		title, text := ExtractHTML(body)
		if text != "" {
			source := pageURL
			if title != "" {
				source = fmt.Sprintf("%s (%s)", title, pageURL)
			}
			if _, err := c.pipeline.IngestText(ctx, source, text, docIDForURL(pageURL)); err != nil {
				batch.Failed++
				c.log.Error().Err(err).Str("url", pageURL).Msg("skipping page")
			} else {
				batch.Ingested = append(batch.Ingested, Result{DocID: docIDForURL(pageURL), Source: source})
				totalChars += len(text)
			}
		}

		for _, link := range extractLinks(root, pageURL, body) {
			if !seen[link] {
				seen[link] = true
				queue = append(queue, link)
			}
		}
	}

	c.log.Info().
		Int("pages", len(batch.Ingested)).
		Int("failed", batch.Failed).
		Int("chars", totalChars).
		Msg("crawl complete")
	return batch, nil
}

func (c *Crawler) fetch(ctx context.Context, pageURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("url", pageURL).Msg("fetch failed")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", false
	}
	return string(body), true
}

// extractLinks returns same-host, crawlable links found on the page.
func extractLinks(root *url.URL, pageURL, body string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var out []string
	for _, m := range hrefRe.FindAllStringSubmatch(body, -1) {
		href := strings.TrimSpace(m[1])
		if href == "" || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			continue
		}
		abs := normalizeURL(base, href)
		if abs == "" {
			continue
		}
		u, err := url.Parse(abs)
		if err != nil || u.Host != root.Host {
			continue
		}
		if hasSkippedExtension(u.Path) {
			continue
		}
		out = append(out, abs)
	}
	return out
}

// normalizeURL resolves href against base, drops fragments and utm_*
// tracking params, and trims trailing slashes so the same page is not
// crawled twice.
func normalizeURL(base *url.URL, href string) string {
	u, err := base.Parse(href)
	if err != nil {
		return ""
	}
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "utm_") {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	s := u.String()
	if strings.HasSuffix(s, "/") && strings.Count(s, "/") > 2 {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

func hasSkippedExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// docIDForURL derives a stable document ID from a page URL, so re-crawling
// replaces the page's records instead of duplicating them.
func docIDForURL(pageURL string) string {
	id := strings.TrimPrefix(pageURL, "https://")
	id = strings.TrimPrefix(id, "http://")
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, id)
	return "web_" + id
}
