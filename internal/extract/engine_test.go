package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gabriel/manhwa-hub/backend/internal/cache"
	"github.com/gabriel/manhwa-hub/backend/internal/fetch"
	"github.com/gabriel/manhwa-hub/backend/internal/models"
	"github.com/gabriel/manhwa-hub/backend/internal/normalize"
)

const testBase = "https://manhwa.example"

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]string)}
}

func (f *fakeFetcher) set(target string, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[target] = html
}

func (f *fakeFetcher) FetchMarkup(_ context.Context, target string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, target)
	html, ok := f.pages[target]
	if !ok {
		return "", &fetch.FetchError{URL: target, StatusCode: http.StatusNotFound, Err: errors.New("not found")}
	}
	return html, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEngine(fetcher Fetcher, popular PopularStore) *Engine {
	return NewEngine(Config{
		BaseURL: testBase,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, fetcher, popular)
}

func cardsHTML(slugs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="listing">`)
	for _, slug := range slugs {
		fmt.Fprintf(&b, `<div class="page-item-detail"><a href="/manhwa/%s/" title="%s title"><img data-src="/covers/%s.jpg"></a><span class="chapter-item">Chapter 3</span></div>`, slug, slug, slug)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func TestExtractListingDedupesAndResolves(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(testBase+"/", `<html><body>
		<div class="page-item-detail"><a href="/manhwa/solo-leveling/" title="Solo Leveling"><img data-src="//cdn.example/solo.jpg" src="/lazy.gif"></a><span class="chapter-item">Chapter 200</span></div>
		<div class="page-item-detail"><a href="https://manhwa.example/manhwa/solo-leveling/">dup</a></div>
		<div class="page-item-detail"><a href="/about/">no detail link</a></div>
		<div class="page-item-detail"><a href="manhwa/tower-of-god/"><img alt="Tower of God"></a></div>
		<div class="page-item-detail"><a href="/manhwa/blank/"></a></div>
	</body></html>`)

	engine := newTestEngine(fetcher, nil)
	result, err := engine.ExtractListing(context.Background(), 1)
	if err != nil {
		t.Fatalf("extract listing: %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 unique items, got %d: %+v", len(result.Items), result.Items)
	}

	links := make(map[string]struct{})
	for _, item := range result.Items {
		if _, dup := links[item.Link]; dup {
			t.Fatalf("duplicate link %s", item.Link)
		}
		links[item.Link] = struct{}{}
		if !normalize.IsAbsolute(item.Link) || !normalize.IsAbsolute(item.Cover) {
			t.Fatalf("expected absolute urls, got %+v", item)
		}
	}

	first := result.Items[0]
	if first.Slug != "solo-leveling" || first.Title != "Solo Leveling" || first.Latest != "Chapter 200" {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.Cover != "https://cdn.example/solo.jpg" {
		t.Fatalf("expected data-src cover, got %s", first.Cover)
	}

	second := result.Items[1]
	if second.Title != "Tower of God" || second.Link != testBase+"/manhwa/tower-of-god/" {
		t.Fatalf("unexpected second item: %+v", second)
	}
	if second.Cover != DefaultPlaceholderCover {
		t.Fatalf("expected placeholder cover, got %s", second.Cover)
	}
}

func TestExtractListingTriesCandidateURLs(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(testBase+"/page/2/", `<html><body>maintenance</body></html>`)
	fetcher.set(testBase+"/?paged=2", cardsHTML("alpha", "beta"))

	engine := newTestEngine(fetcher, nil)
	result, err := engine.ExtractListing(context.Background(), 2)
	if err != nil {
		t.Fatalf("extract listing: %v", err)
	}
	if len(result.Items) != 2 || result.Page != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	want := []string{testBase + "/page/2/", testBase + "/?paged=2"}
	if strings.Join(fetcher.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected candidate order: %v", fetcher.calls)
	}
}

func TestExtractListingFailsWhenAllCandidatesFail(t *testing.T) {
	engine := newTestEngine(newFakeFetcher(), nil)
	_, err := engine.ExtractListing(context.Background(), 1)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	var fetchErr *fetch.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected wrapped FetchError, got %v", err)
	}
}

func TestPopularSnapshotStableWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	popular := cache.New(15*time.Minute, 8, clock.Now)
	fetcher := newFakeFetcher()
	engine := newTestEngine(fetcher, popular)
	ctx := context.Background()

	fetcher.set(testBase+"/", cardsHTML("a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "a10"))
	first, err := engine.ExtractListing(ctx, 1)
	if err != nil {
		t.Fatalf("first listing: %v", err)
	}
	if len(first.Popular) != 8 || len(first.Recents) != 2 {
		t.Fatalf("expected 8 popular and 2 recents, got %d and %d", len(first.Popular), len(first.Recents))
	}

	fetcher.set(testBase+"/", cardsHTML("b1", "b2", "a1", "a2"))
	clock.Advance(10 * time.Minute)
	second, err := engine.ExtractListing(ctx, 1)
	if err != nil {
		t.Fatalf("second listing: %v", err)
	}
	if slugs(second.Popular) != slugs(first.Popular) {
		t.Fatalf("expected identical popular within ttl, got %s vs %s", slugs(second.Popular), slugs(first.Popular))
	}
	if slugs(second.Recents) != "b1,b2" {
		t.Fatalf("expected recents without popular entries, got %s", slugs(second.Recents))
	}

	clock.Advance(6 * time.Minute)
	third, err := engine.ExtractListing(ctx, 1)
	if err != nil {
		t.Fatalf("third listing: %v", err)
	}
	if slugs(third.Popular) == slugs(first.Popular) {
		t.Fatalf("expected popular to change after ttl")
	}
	if slugs(third.Popular) != "b1,b2,a1,a2" || len(third.Recents) != 0 {
		t.Fatalf("unexpected refreshed popular %s recents %s", slugs(third.Popular), slugs(third.Recents))
	}
}

func TestExtractListingOverHTTP(t *testing.T) {
	var gotReferer string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write([]byte(cardsHTML("one", "two")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := fetch.NewFetcher(fetch.Options{BaseURL: server.URL})
	engine := NewEngine(Config{BaseURL: server.URL}, fetcher, nil)

	result, err := engine.ExtractListing(context.Background(), 1)
	if err != nil {
		t.Fatalf("extract listing: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[0].Link != server.URL+"/manhwa/one/" {
		t.Fatalf("unexpected link: %s", result.Items[0].Link)
	}
	if result.Items[0].Cover != server.URL+"/covers/one.jpg" {
		t.Fatalf("unexpected cover: %s", result.Items[0].Cover)
	}
	if gotReferer != server.URL+"/" {
		t.Fatalf("unexpected referer: %s", gotReferer)
	}
}

func slugs(items []models.ListingItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.Slug)
	}
	return strings.Join(parts, ",")
}

func TestNewEngineFillsMissingSelectorsPerField(t *testing.T) {
	engine := NewEngine(Config{
		BaseURL:   testBase,
		Selectors: Selectors{ReaderImages: []string{".viewer img"}},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, newFakeFetcher(), nil)

	defaults := DefaultSelectors()
	if len(engine.selectors.ReaderImages) != 1 || engine.selectors.ReaderImages[0] != ".viewer img" {
		t.Fatalf("expected caller reader selectors to survive, got %v", engine.selectors.ReaderImages)
	}
	if len(engine.selectors.Cards) != len(defaults.Cards) || engine.selectors.Cards[0] != defaults.Cards[0] {
		t.Fatalf("expected default card selectors, got %v", engine.selectors.Cards)
	}
	if engine.selectors.DetailPathTemplate != defaults.DetailPathTemplate {
		t.Fatalf("expected default detail template, got %q", engine.selectors.DetailPathTemplate)
	}
}
