package content

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gabriel/manhwa-hub/backend/internal/extract"
	"github.com/gabriel/manhwa-hub/backend/internal/models"
)

type fakeExtractor struct {
	detail      *models.MangaDetail
	detailErr   error
	pages       map[string][]string
	detailCalls []string
}

func (f *fakeExtractor) ExtractListing(_ context.Context, page int) (extract.ListingResult, error) {
	return extract.ListingResult{Page: page}, nil
}

func (f *fakeExtractor) ExtractMangaDetail(_ context.Context, slug string) (*models.MangaDetail, error) {
	f.detailCalls = append(f.detailCalls, slug)
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.detail, nil
}

func (f *fakeExtractor) ExtractReaderPages(_ context.Context, chapterURL string) ([]string, error) {
	pages, ok := f.pages[chapterURL]
	if !ok {
		return []string{}, nil
	}
	return pages, nil
}

func (f *fakeExtractor) ExtractGenreIndex(context.Context) ([]models.Genre, error) {
	return []models.Genre{{Name: "Action", Slug: "action"}}, nil
}

type fakeProber struct {
	mu    sync.Mutex
	dead  map[string]bool
	calls int
}

func (p *fakeProber) ProbeExists(_ context.Context, target string, _ time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return !p.dead[target]
}

func sampleDetail() *models.MangaDetail {
	return &models.MangaDetail{
		Slug:  "solo",
		Title: "Solo",
		Chapters: []models.Chapter{
			{ChapterID: "12.5", Title: "Chapter 12.5", Link: "https://manhwa.example/manhwa/solo/chapter-12-5/"},
			{ChapterID: "12", Title: "Chapter 12", Link: "https://manhwa.example/manhwa/solo/chapter-12/"},
			{ChapterID: "3", Title: "Special: Side Story", Link: "https://manhwa.example/manhwa/solo/side/"},
		},
	}
}

func TestReaderMatchesNormalizedChapter(t *testing.T) {
	extractor := &fakeExtractor{
		detail: sampleDetail(),
		pages: map[string][]string{
			"https://manhwa.example/manhwa/solo/chapter-12-5/": {"https://cdn.example/1.jpg"},
		},
	}
	service := NewService(extractor, nil, nil)

	for _, raw := range []string{"12_5", "12-5", "chapter-12-5"} {
		result, err := service.Reader(context.Background(), "solo", raw, false)
		if err != nil {
			t.Fatalf("reader %s: %v", raw, err)
		}
		if result.Chapter.ChapterID != "12.5" || len(result.Pages) != 1 {
			t.Fatalf("reader %s: unexpected result %+v", raw, result)
		}
	}
}

func TestReaderFallsBackToTitleMatch(t *testing.T) {
	extractor := &fakeExtractor{
		detail: sampleDetail(),
		pages: map[string][]string{
			"https://manhwa.example/manhwa/solo/side/": {"https://cdn.example/side.jpg"},
		},
	}
	service := NewService(extractor, nil, nil)

	result, err := service.Reader(context.Background(), "solo", "Side", false)
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	if result.Chapter.ChapterID != "3" {
		t.Fatalf("expected title match, got %+v", result.Chapter)
	}
}

func TestReaderUnknownChapterIsNotFound(t *testing.T) {
	extractor := &fakeExtractor{detail: sampleDetail()}
	service := NewService(extractor, nil, nil)

	_, err := service.Reader(context.Background(), "solo", "999", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReaderEmptyPagesIsNotFound(t *testing.T) {
	extractor := &fakeExtractor{detail: sampleDetail()}
	service := NewService(extractor, nil, nil)

	_, err := service.Reader(context.Background(), "solo", "12", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty pages, got %v", err)
	}
	if !strings.Contains(err.Error(), "no readable pages") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestReaderRejectsInvalidInput(t *testing.T) {
	extractor := &fakeExtractor{detail: sampleDetail()}
	service := NewService(extractor, nil, nil)

	if _, err := service.Reader(context.Background(), "../", "1", false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for slug, got %v", err)
	}
	if _, err := service.Reader(context.Background(), "solo", "  ", false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for chapter, got %v", err)
	}
	if len(extractor.detailCalls) != 0 {
		t.Fatalf("expected no upstream calls for invalid input")
	}
}

func TestReaderPropagatesUpstreamErrors(t *testing.T) {
	extractor := &fakeExtractor{detailErr: extract.ErrUpstreamUnavailable}
	service := NewService(extractor, nil, nil)

	if _, err := service.Reader(context.Background(), "solo", "1", false); !errors.Is(err, extract.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestReaderValidationDropsDeadPages(t *testing.T) {
	link := "https://manhwa.example/manhwa/solo/chapter-12/"
	extractor := &fakeExtractor{
		detail: sampleDetail(),
		pages: map[string][]string{
			link: {"https://cdn.example/1.jpg", "https://cdn.example/2.jpg", "https://cdn.example/3.jpg"},
		},
	}
	prober := &fakeProber{dead: map[string]bool{"https://cdn.example/2.jpg": true}}
	service := NewService(extractor, prober, nil)

	result, err := service.Reader(context.Background(), "solo", "12", true)
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	if strings.Join(result.Pages, ",") != "https://cdn.example/1.jpg,https://cdn.example/3.jpg" {
		t.Fatalf("unexpected pages: %v", result.Pages)
	}
	if prober.calls != 3 {
		t.Fatalf("expected 3 probes, got %d", prober.calls)
	}

	prober.dead = map[string]bool{
		"https://cdn.example/1.jpg": true,
		"https://cdn.example/3.jpg": true,
	}
	if _, err := service.Reader(context.Background(), "solo", "12", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound when every page is dead, got %v", err)
	}
}

func TestMangaSanitizesSlug(t *testing.T) {
	extractor := &fakeExtractor{detail: sampleDetail()}
	service := NewService(extractor, nil, nil)

	if _, err := service.Manga(context.Background(), "/manhwa/solo/"); err != nil {
		t.Fatalf("manga: %v", err)
	}
	if extractor.detailCalls[0] != "solo" {
		t.Fatalf("expected sanitized slug, got %s", extractor.detailCalls[0])
	}
	if _, err := service.Manga(context.Background(), "///"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
