package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gabriel/manhwa-hub/backend/internal/account"
	"github.com/gabriel/manhwa-hub/backend/internal/cache"
	"github.com/gabriel/manhwa-hub/backend/internal/config"
	"github.com/gabriel/manhwa-hub/backend/internal/content"
	"github.com/gabriel/manhwa-hub/backend/internal/database"
	"github.com/gabriel/manhwa-hub/backend/internal/extract"
	"github.com/gabriel/manhwa-hub/backend/internal/fetch"
	apihttp "github.com/gabriel/manhwa-hub/backend/internal/http"
	"github.com/gabriel/manhwa-hub/backend/internal/repository"
	"github.com/gabriel/manhwa-hub/backend/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	selectors, err := extract.LoadSelectors(cfg.SelectorsPath)
	if err != nil {
		slog.Warn("selectors loaded with warnings", "path", cfg.SelectorsPath, "error", err)
	}

	fetcher := fetch.NewFetcher(fetch.Options{
		BaseURL:          cfg.SiteBaseURL,
		Timeout:          cfg.FetchTimeout,
		RatePerSecond:    cfg.FetchRatePerSecond,
		CloudflareBypass: cfg.CloudflareBypass,
		Logger:           logger,
	})
	popular := cache.New(cfg.PopularTTL, cfg.PopularSize, nil)
	engine := extract.NewEngine(extract.Config{
		BaseURL:   cfg.SiteBaseURL,
		Timeout:   cfg.FetchTimeout,
		Selectors: selectors,
		Logger:    logger,
	}, fetcher, popular)

	tokens := account.TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: cfg.JWTDuration,
	}
	accounts := account.NewService(repository.NewUserRepository(db), repository.NewBookmarkRepository(db), tokens)

	app := apihttp.NewServer(cfg, apihttp.Dependencies{
		DB:       db,
		Content:  content.NewService(engine, fetcher, logger),
		Accounts: accounts,
		Popular:  popular,
	})

	warmerCtx, warmerCancel := context.WithCancel(context.Background())
	warmer := scheduler.NewWarmer(engine, scheduler.WarmerConfig{
		Interval: cfg.WarmerInterval,
		Timeout:  cfg.FetchTimeout * 3,
	}, logger)
	if cfg.WarmerEnabled {
		warmer.Start(warmerCtx)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment, "site", cfg.SiteBaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	warmerCancel()
	if cfg.WarmerEnabled {
		warmer.StopWait(2 * time.Second)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
