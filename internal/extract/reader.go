package extract

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel/manhwa-hub/backend/internal/markup"
	"github.com/gabriel/manhwa-hub/backend/internal/normalize"
)

var (
	scriptURLPattern = regexp.MustCompile(`https?://[^\s"'<>\\]+`)
	imagePathPattern = regexp.MustCompile(`(?i)\.(?:jpe?g|png|webp)$`)
)

// ExtractReaderPages returns chapter image URLs from markup and inline
// scripts, deduplicated in order. An empty result is not an error.
func (e *Engine) ExtractReaderPages(ctx context.Context, chapterURL string) ([]string, error) {
	html, err := e.fetcher.FetchMarkup(ctx, chapterURL, e.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: reader %s: %w", ErrUpstreamUnavailable, chapterURL, err)
	}

	doc, err := markup.Parse(html)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	candidates := make([]string, 0)
	doc.Cascade(e.selectors.ReaderImages).Each(func(_ int, img *goquery.Selection) {
		raw := markup.AttrFirst(img, "data-src", "data-lazy-src", "src")
		if raw != "" {
			candidates = append(candidates, normalize.Resolve(raw, chapterURL))
		}
	})
	for _, body := range doc.ScriptBodies() {
		candidates = append(candidates, scriptImageURLs(body)...)
	}

	pages := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if !normalize.IsAbsolute(candidate) {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		pages = append(pages, candidate)
	}

	if len(pages) == 0 {
		e.logger.Debug("reader page has no images", "url", chapterURL)
	}
	return pages, nil
}

// scriptImageURLs keeps whole URLs whose path names an image, query
// string included.
func scriptImageURLs(body string) []string {
	unescaped := strings.ReplaceAll(body, `\/`, `/`)
	found := make([]string, 0)
	for _, raw := range scriptURLPattern.FindAllString(unescaped, -1) {
		raw = strings.TrimRight(raw, ",;)]}")
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			continue
		}
		if imagePathPattern.MatchString(parsed.Path) {
			found = append(found, raw)
		}
	}
	return found
}
