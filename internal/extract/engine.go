// Package extract turns upstream Madara-style pages into listing, detail,
// reader and genre records. Each field is located through an ordered
// selector cascade and records missing a link or title are dropped.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel/manhwa-hub/backend/internal/cache"
	"github.com/gabriel/manhwa-hub/backend/internal/models"
)

const (
	DefaultPlaceholderCover = "https://placehold.co/300x450?text=No+Cover"
	DefaultDescription      = "توضیحات ندارد"
	DefaultTimeout          = 20 * time.Second
)

var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidSlug         = errors.New("invalid slug")
)

type Fetcher interface {
	FetchMarkup(ctx context.Context, target string, timeout time.Duration) (string, error)
}

type PopularStore interface {
	Snapshot() []models.ListingItem
	RefreshIfStale(candidates []models.ListingItem) bool
}

type Config struct {
	BaseURL          string
	Timeout          time.Duration
	Selectors        Selectors
	PlaceholderCover string
	Description      string
	Logger           *slog.Logger
}

type Engine struct {
	baseURL     string
	timeout     time.Duration
	selectors   Selectors
	placeholder string
	description string
	fetcher     Fetcher
	popular     PopularStore
	logger      *slog.Logger
}

func NewEngine(cfg Config, fetcher Fetcher, popular PopularStore) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(cfg.PlaceholderCover) == "" {
		cfg.PlaceholderCover = DefaultPlaceholderCover
	}
	if strings.TrimSpace(cfg.Description) == "" {
		cfg.Description = DefaultDescription
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Selectors = DefaultSelectors().overlay(cfg.Selectors)
	if popular == nil {
		popular = cache.New(cache.DefaultTTL, cache.DefaultSize, nil)
	}

	return &Engine{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout:     cfg.Timeout,
		selectors:   cfg.Selectors,
		placeholder: cfg.PlaceholderCover,
		description: cfg.Description,
		fetcher:     fetcher,
		popular:     popular,
		logger:      cfg.Logger,
	}
}

func (e *Engine) BaseURL() string {
	return e.baseURL
}

func (e *Engine) absolute(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.baseURL + path
}
