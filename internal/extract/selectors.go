package extract

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Selectors is the ordered selector catalogue for each extractor. Every list
// is tried in order, so new site templates are supported by appending
// entries rather than changing extractor code.
type Selectors struct {
	ListingPaths       []string `yaml:"listing_paths"`
	ListingMarkers     []string `yaml:"listing_markers"`
	Cards              []string `yaml:"cards"`
	DetailPathPrefixes []string `yaml:"detail_path_prefixes"`
	LatestChapter      []string `yaml:"latest_chapter"`
	DetailPathTemplate string   `yaml:"detail_path_template"`
	Titles             []string `yaml:"titles"`
	Descriptions       []string `yaml:"descriptions"`
	GenreLinks         []string `yaml:"genre_links"`
	ChapterLinks       []string `yaml:"chapter_links"`
	CoverImages        []string `yaml:"cover_images"`
	ReaderImages       []string `yaml:"reader_images"`
	GenreIndexPath     string   `yaml:"genre_index_path"`
	GenreIndexLinks    []string `yaml:"genre_index_links"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		ListingPaths:       []string{"/page/{page}/", "/?paged={page}"},
		ListingMarkers:     []string{"page-item-detail", "manga-card", "wp-manga", "<article"},
		Cards:              []string{".page-item-detail", "article.post", ".manga-card", ".c-tabs-item__content"},
		DetailPathPrefixes: []string{"/manhwa/", "/manga/"},
		LatestChapter:      []string{".chapter-item .chapter a", ".chapter-item", ".latest-chap"},
		DetailPathTemplate: "/manhwa/{slug}/",
		Titles:             []string{".post-title h1", "h1", ".entry-title"},
		Descriptions:       []string{".summary__content p", ".summary__content", ".description-summary", ".manga-excerpt"},
		GenreLinks:         []string{".genres-content a", ".mg_genres a"},
		ChapterLinks:       []string{".wp-manga-chapter a", ".chapter-list a", "ul.version-chap li a"},
		CoverImages:        []string{".summary_image img", ".thumb img", "meta[property='og:image']"},
		ReaderImages:       []string{".reading-content img", ".page-break img", "#readerarea img"},
		GenreIndexPath:     "/genres/",
		GenreIndexLinks:    []string{".genres__collapse a", ".genres a", "a[href*='slug=']"},
	}
}

// LoadSelectors overlays the YAML file at path on top of DefaultSelectors.
// A blank path or a missing file yields the defaults. Lists left empty in the
// file keep their default entries.
func LoadSelectors(path string) (Selectors, error) {
	defaults := DefaultSelectors()

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return defaults, nil
	}

	content, err := os.ReadFile(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("read selectors file: %w", err)
	}

	var file Selectors
	if err := yaml.Unmarshal(content, &file); err != nil {
		return defaults, fmt.Errorf("parse selectors file %s: %w", trimmed, err)
	}

	return defaults.overlay(file), nil
}

func (s Selectors) overlay(file Selectors) Selectors {
	s.ListingPaths = pickList(file.ListingPaths, s.ListingPaths)
	s.ListingMarkers = pickList(file.ListingMarkers, s.ListingMarkers)
	s.Cards = pickList(file.Cards, s.Cards)
	s.DetailPathPrefixes = pickList(file.DetailPathPrefixes, s.DetailPathPrefixes)
	s.LatestChapter = pickList(file.LatestChapter, s.LatestChapter)
	s.DetailPathTemplate = pickString(file.DetailPathTemplate, s.DetailPathTemplate)
	s.Titles = pickList(file.Titles, s.Titles)
	s.Descriptions = pickList(file.Descriptions, s.Descriptions)
	s.GenreLinks = pickList(file.GenreLinks, s.GenreLinks)
	s.ChapterLinks = pickList(file.ChapterLinks, s.ChapterLinks)
	s.CoverImages = pickList(file.CoverImages, s.CoverImages)
	s.ReaderImages = pickList(file.ReaderImages, s.ReaderImages)
	s.GenreIndexPath = pickString(file.GenreIndexPath, s.GenreIndexPath)
	s.GenreIndexLinks = pickList(file.GenreIndexLinks, s.GenreIndexLinks)
	return s
}

func pickList(values []string, fallback []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return fallback
	}
	return cleaned
}

func pickString(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
