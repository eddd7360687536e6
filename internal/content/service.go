// Package content orchestrates extractor calls for the public API and turns
// request parameters into validated engine inputs.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel/manhwa-hub/backend/internal/extract"
	"github.com/gabriel/manhwa-hub/backend/internal/models"
	"github.com/gabriel/manhwa-hub/backend/internal/normalize"
	"golang.org/x/sync/errgroup"
)

const probeConcurrency = 4

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Extractor interface {
	ExtractListing(ctx context.Context, page int) (extract.ListingResult, error)
	ExtractMangaDetail(ctx context.Context, slug string) (*models.MangaDetail, error)
	ExtractReaderPages(ctx context.Context, chapterURL string) ([]string, error)
	ExtractGenreIndex(ctx context.Context) ([]models.Genre, error)
}

type Prober interface {
	ProbeExists(ctx context.Context, target string, timeout time.Duration) bool
}

type ReaderResult struct {
	Slug    string
	Chapter models.Chapter
	Pages   []string
}

type Service struct {
	extractor    Extractor
	prober       Prober
	probeTimeout time.Duration
	logger       *slog.Logger
}

func NewService(extractor Extractor, prober Prober, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extractor:    extractor,
		prober:       prober,
		probeTimeout: 8 * time.Second,
		logger:       logger,
	}
}

func (s *Service) Home(ctx context.Context, page int) (extract.ListingResult, error) {
	return s.extractor.ExtractListing(ctx, page)
}

func (s *Service) Manga(ctx context.Context, rawSlug string) (*models.MangaDetail, error) {
	slug, ok := normalize.SanitizeSlug(rawSlug)
	if !ok {
		return nil, fmt.Errorf("%w: slug", ErrInvalidInput)
	}
	return s.extractor.ExtractMangaDetail(ctx, slug)
}

func (s *Service) Genres(ctx context.Context) ([]models.Genre, error) {
	return s.extractor.ExtractGenreIndex(ctx)
}

// Reader resolves rawChapter against a freshly extracted chapter list and
// returns that chapter's pages. An unknown chapter or an empty page list is
// ErrNotFound.
func (s *Service) Reader(ctx context.Context, rawSlug string, rawChapter string, validate bool) (*ReaderResult, error) {
	slug, ok := normalize.SanitizeSlug(rawSlug)
	if !ok {
		return nil, fmt.Errorf("%w: slug", ErrInvalidInput)
	}
	chapterID, ok := normalize.NormalizeChapterParam(rawChapter)
	if !ok {
		return nil, fmt.Errorf("%w: chapter", ErrInvalidInput)
	}

	detail, err := s.extractor.ExtractMangaDetail(ctx, slug)
	if err != nil {
		return nil, err
	}

	chapter, ok := matchChapter(detail.Chapters, chapterID, rawChapter)
	if !ok {
		return nil, fmt.Errorf("%w: chapter %s of %s", ErrNotFound, chapterID, slug)
	}

	pages, err := s.extractor.ExtractReaderPages(ctx, chapter.Link)
	if err != nil {
		return nil, err
	}
	if validate && s.prober != nil {
		pages = s.validatePages(ctx, pages)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: chapter has no readable pages", ErrNotFound)
	}

	return &ReaderResult{Slug: slug, Chapter: chapter, Pages: pages}, nil
}

// matchChapter prefers an exact id match, then a case-insensitive title
// substring match. The first satisfying chapter wins.
func matchChapter(chapters []models.Chapter, chapterID string, rawChapter string) (models.Chapter, bool) {
	for _, chapter := range chapters {
		if chapter.ChapterID == chapterID {
			return chapter, true
		}
	}

	needle := strings.ToLower(strings.TrimSpace(normalize.FoldDigits(rawChapter)))
	if needle == "" {
		return models.Chapter{}, false
	}
	for _, chapter := range chapters {
		title := strings.ToLower(normalize.FoldDigits(chapter.Title))
		if strings.Contains(title, needle) || strings.Contains(title, chapterID) {
			return chapter, true
		}
	}
	return models.Chapter{}, false
}

func (s *Service) validatePages(ctx context.Context, pages []string) []string {
	alive := make([]bool, len(pages))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(probeConcurrency)
	for i, page := range pages {
		i, page := i, page
		group.Go(func() error {
			alive[i] = s.prober.ProbeExists(groupCtx, page, s.probeTimeout)
			return nil
		})
	}
	_ = group.Wait()

	kept := make([]string, 0, len(pages))
	for i, page := range pages {
		if alive[i] {
			kept = append(kept, page)
			continue
		}
		s.logger.Debug("dropping unreachable page", "url", page)
	}
	return kept
}
