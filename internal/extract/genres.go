package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel/manhwa-hub/backend/internal/markup"
	"github.com/gabriel/manhwa-hub/backend/internal/models"
)

func (e *Engine) ExtractGenreIndex(ctx context.Context) ([]models.Genre, error) {
	indexURL := e.absolute(e.selectors.GenreIndexPath)
	html, err := e.fetcher.FetchMarkup(ctx, indexURL, e.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: genre index: %w", ErrUpstreamUnavailable, err)
	}

	doc, err := markup.Parse(html)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	genres := make([]models.Genre, 0)
	seen := make(map[string]struct{})
	doc.Cascade(e.selectors.GenreIndexLinks).Each(func(_ int, anchor *goquery.Selection) {
		name := markup.CleanText(anchor.Text())
		href, _ := anchor.Attr("href")
		parsed, err := url.Parse(strings.TrimSpace(href))
		if name == "" || err != nil {
			return
		}
		slug := strings.TrimSpace(parsed.Query().Get("slug"))
		if slug == "" {
			return
		}
		if _, ok := seen[slug]; ok {
			return
		}
		seen[slug] = struct{}{}
		genres = append(genres, models.Genre{Name: name, Slug: slug})
	})

	return genres, nil
}
