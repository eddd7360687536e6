package extract

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel/manhwa-hub/backend/internal/markup"
	"github.com/gabriel/manhwa-hub/backend/internal/models"
	"github.com/gabriel/manhwa-hub/backend/internal/normalize"
)

type ListingResult struct {
	Page    int
	Items   []models.ListingItem
	Popular []models.ListingItem
	Recents []models.ListingItem
}

// ExtractListing parses one listing page. The first pass that finds the
// popular cache empty or expired refreshes it from the head of Items.
func (e *Engine) ExtractListing(ctx context.Context, page int) (ListingResult, error) {
	if page < 1 {
		page = 1
	}

	html, err := e.fetchListingMarkup(ctx, page)
	if err != nil {
		return ListingResult{}, err
	}

	doc, err := markup.Parse(html)
	if err != nil {
		return ListingResult{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	items := e.parseListingCards(doc)
	e.popular.RefreshIfStale(items)
	popular := e.popular.Snapshot()

	return ListingResult{
		Page:    page,
		Items:   items,
		Popular: popular,
		Recents: withoutPopular(items, popular),
	}, nil
}

func (e *Engine) listingCandidates(page int) []string {
	candidates := make([]string, 0, len(e.selectors.ListingPaths)+1)
	seen := make(map[string]struct{})
	add := func(path string) {
		target := e.absolute(path)
		if _, ok := seen[target]; ok {
			return
		}
		seen[target] = struct{}{}
		candidates = append(candidates, target)
	}

	if page == 1 {
		add("/")
	}
	for _, template := range e.selectors.ListingPaths {
		add(strings.ReplaceAll(template, "{page}", strconv.Itoa(page)))
	}
	return candidates
}

func (e *Engine) fetchListingMarkup(ctx context.Context, page int) (string, error) {
	var lastErr error
	for _, candidate := range e.listingCandidates(page) {
		html, err := e.fetcher.FetchMarkup(ctx, candidate, e.timeout)
		if err != nil {
			e.logger.Debug("listing candidate failed", "url", candidate, "error", err)
			lastErr = err
			continue
		}
		if !containsAny(html, e.selectors.ListingMarkers) {
			e.logger.Debug("listing candidate has no cards", "url", candidate)
			lastErr = fmt.Errorf("no listing markers at %s", candidate)
			continue
		}
		return html, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no listing candidates for page %d", page)
	}
	return "", fmt.Errorf("%w: listing page %d: %w", ErrUpstreamUnavailable, page, lastErr)
}

func (e *Engine) parseListingCards(doc *markup.Document) []models.ListingItem {
	items := make([]models.ListingItem, 0)
	seen := make(map[string]struct{})

	doc.Cascade(e.selectors.Cards).Each(func(_ int, card *goquery.Selection) {
		item, ok := e.parseListingCard(card)
		if !ok {
			return
		}
		if _, dup := seen[item.Link]; dup {
			return
		}
		seen[item.Link] = struct{}{}
		items = append(items, item)
	})

	return items
}

func (e *Engine) parseListingCard(card *goquery.Selection) (models.ListingItem, bool) {
	var (
		anchor *goquery.Selection
		link   string
		slug   string
	)
	card.Find("a[href]").EachWithBreak(func(_ int, candidate *goquery.Selection) bool {
		href, _ := candidate.Attr("href")
		resolved := normalize.Resolve(href, e.baseURL+"/")
		if !normalize.IsAbsolute(resolved) {
			return true
		}
		candidateSlug, ok := e.detailSlug(resolved)
		if !ok {
			return true
		}
		anchor, link, slug = candidate, resolved, candidateSlug
		return false
	})
	if anchor == nil {
		e.logger.Debug("listing card without detail link")
		return models.ListingItem{}, false
	}

	img := card.Find("img").First()
	title := markup.CleanText(markup.AttrFirst(anchor, "title"))
	if title == "" {
		title = markup.CleanText(markup.AttrFirst(img, "alt"))
	}
	if title == "" {
		title = markup.CleanText(card.Text())
	}
	if title == "" {
		e.logger.Debug("listing card without title", "link", link)
		return models.ListingItem{}, false
	}

	latest := markup.CleanText(markup.CascadeWithin(card, e.selectors.LatestChapter).First().Text())

	return models.ListingItem{
		Slug:   slug,
		Link:   link,
		Title:  title,
		Cover:  e.coverURL(markup.AttrFirst(img, "data-src", "data-lazy-src", "src"), e.baseURL+"/"),
		Latest: latest,
	}, true
}

// detailSlug reports the slug when link points at a series detail page.
func (e *Engine) detailSlug(link string) (string, bool) {
	parsed, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	for _, prefix := range e.selectors.DetailPathPrefixes {
		index := strings.Index(parsed.Path, prefix)
		if index < 0 {
			continue
		}
		rest := strings.Trim(parsed.Path[index+len(prefix):], "/")
		if rest == "" {
			continue
		}
		segment := strings.SplitN(rest, "/", 2)[0]
		if slug, ok := normalize.SanitizeSlug(segment); ok {
			return slug, true
		}
	}
	return "", false
}

func (e *Engine) coverURL(raw string, base string) string {
	if strings.TrimSpace(raw) == "" {
		return e.placeholder
	}
	resolved := normalize.Resolve(raw, base)
	if !normalize.IsAbsolute(resolved) {
		return e.placeholder
	}
	return resolved
}

func withoutPopular(items []models.ListingItem, popular []models.ListingItem) []models.ListingItem {
	links := make(map[string]struct{}, len(popular))
	slugs := make(map[string]struct{}, len(popular))
	for _, item := range popular {
		links[item.Link] = struct{}{}
		slugs[item.Slug] = struct{}{}
	}

	recents := make([]models.ListingItem, 0, len(items))
	for _, item := range items {
		if _, ok := links[item.Link]; ok {
			continue
		}
		if _, ok := slugs[item.Slug]; ok {
			continue
		}
		recents = append(recents, item)
	}
	return recents
}

func containsAny(html string, markers []string) bool {
	if len(markers) == 0 {
		return true
	}
	for _, marker := range markers {
		if marker != "" && strings.Contains(html, marker) {
			return true
		}
	}
	return false
}
