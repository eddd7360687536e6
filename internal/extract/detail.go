package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel/manhwa-hub/backend/internal/markup"
	"github.com/gabriel/manhwa-hub/backend/internal/models"
	"github.com/gabriel/manhwa-hub/backend/internal/normalize"
)

var (
	chapterQueryPattern = regexp.MustCompile(`(?i)[?&](?:chapter|ch|c)=(\d+(?:[._-]\d+)?)`)
	chapterPathPattern  = regexp.MustCompile(`(?i)/(?:chapter|chap|ch)[-_](\d+(?:[._-]\d+)?)/?(?:[?#]|$)`)
	firstNumberPattern  = regexp.MustCompile(`\d+(?:[._]\d+)?`)
)

func (e *Engine) ExtractMangaDetail(ctx context.Context, rawSlug string) (*models.MangaDetail, error) {
	slug, ok := normalize.SanitizeSlug(rawSlug)
	if !ok {
		return nil, ErrInvalidSlug
	}

	detailURL := e.absolute(strings.ReplaceAll(e.selectors.DetailPathTemplate, "{slug}", slug))
	html, err := e.fetcher.FetchMarkup(ctx, detailURL, e.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: detail %s: %w", ErrUpstreamUnavailable, slug, err)
	}

	doc, err := markup.Parse(html)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	title := doc.FirstText(e.selectors.Titles)
	if title == "" {
		e.logger.Debug("detail title missing", "slug", slug)
		title = prettifySlug(slug)
	}

	description := doc.FirstText(e.selectors.Descriptions)
	if description == "" {
		description = e.description
	}

	return &models.MangaDetail{
		Slug:        slug,
		Title:       title,
		Description: description,
		Genres:      e.parseGenres(doc),
		Cover:       e.parseDetailCover(doc, detailURL),
		Chapters:    e.parseChapters(doc, detailURL),
	}, nil
}

func (e *Engine) parseGenres(doc *markup.Document) []string {
	genres := make([]string, 0)
	doc.Union(e.selectors.GenreLinks).Each(func(_ int, sel *goquery.Selection) {
		if name := markup.CleanText(sel.Text()); name != "" {
			genres = append(genres, name)
		}
	})
	return genres
}

func (e *Engine) parseDetailCover(doc *markup.Document, detailURL string) string {
	for _, selector := range markup.ValidSelectors(e.selectors.CoverImages) {
		raw := markup.AttrFirst(doc.Root().Find(selector).First(), "data-src", "data-lazy-src", "src", "content")
		if raw == "" {
			continue
		}
		if cover := e.coverURL(raw, detailURL); cover != e.placeholder {
			return cover
		}
	}
	return e.placeholder
}

// parseChapters keeps document order. Ids come from the link, then the link
// text. Chapters without either take their 1-based position among kept
// chapters, moved forward past any id already in use.
func (e *Engine) parseChapters(doc *markup.Document, detailURL string) []models.Chapter {
	chapters := make([]models.Chapter, 0)
	doc.Union(e.selectors.ChapterLinks).Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		link := normalize.Resolve(href, detailURL)
		if strings.TrimSpace(href) == "" || !normalize.IsAbsolute(link) {
			e.logger.Debug("chapter link unusable", "href", href)
			return
		}

		text := markup.CleanText(anchor.Text())
		chapters = append(chapters, models.Chapter{ChapterID: chapterID(link, text), Title: text, Link: link})
	})

	used := make(map[string]struct{}, len(chapters))
	for _, chapter := range chapters {
		if chapter.ChapterID != "" {
			used[chapter.ChapterID] = struct{}{}
		}
	}
	for i := range chapters {
		if chapters[i].ChapterID == "" {
			position := i + 1
			for {
				if _, taken := used[strconv.Itoa(position)]; !taken {
					break
				}
				position++
			}
			chapters[i].ChapterID = strconv.Itoa(position)
			used[chapters[i].ChapterID] = struct{}{}
		}
		if chapters[i].Title == "" {
			chapters[i].Title = "Chapter " + chapters[i].ChapterID
		}
	}
	return chapters
}

// chapterID returns "" when neither the link nor the text carries a number.
func chapterID(link string, text string) string {
	if match := chapterQueryPattern.FindStringSubmatch(link); match != nil {
		if id, ok := normalize.NormalizeChapterParam(match[1]); ok {
			return id
		}
	}
	if match := chapterPathPattern.FindStringSubmatch(link); match != nil {
		if id, ok := normalize.NormalizeChapterParam(match[1]); ok {
			return id
		}
	}
	if match := firstNumberPattern.FindString(normalize.FoldDigits(text)); match != "" {
		if id, ok := normalize.NormalizeChapterParam(match); ok {
			return id
		}
	}
	return ""
}

func prettifySlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	if len(words) == 0 {
		return slug
	}
	return strings.Join(words, " ")
}
