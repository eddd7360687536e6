package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel/manhwa-hub/backend/internal/extract"
)

type listingExtractor interface {
	ExtractListing(ctx context.Context, page int) (extract.ListingResult, error)
}

// Warmer runs the first listing page on an interval so the popular cache is
// populated before clients ask for it.
type Warmer struct {
	extractor listingExtractor
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	stopCh    chan struct{}
}

type WarmerConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

func NewWarmer(extractor listingExtractor, cfg WarmerConfig, logger *slog.Logger) *Warmer {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Warmer{
		extractor: extractor,
		interval:  cfg.Interval,
		timeout:   cfg.Timeout,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

func (w *Warmer) Start(ctx context.Context) {
	w.logger.Info("warmer started", "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		if err := w.RunOnce(ctx); err != nil {
			w.logger.Warn("warmer initial run failed", "error", err)
		}
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("warmer stopped")
				close(w.stopCh)
				return
			case <-ticker.C:
				if err := w.RunOnce(ctx); err != nil {
					w.logger.Warn("warmer cycle failed", "error", err)
				}
			}
		}
	}()
}

func (w *Warmer) StopWait(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-w.stopCh:
	case <-time.After(timeout):
	}
}

func (w *Warmer) RunOnce(ctx context.Context) error {
	requestCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	result, err := w.extractor.ExtractListing(requestCtx, 1)
	if err != nil {
		return fmt.Errorf("warm listing: %w", err)
	}

	w.logger.Debug("warmer cycle done", "items", len(result.Items), "popular", len(result.Popular))
	return nil
}
