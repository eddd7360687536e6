package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gabriel/manhwa-hub/backend/internal/cache"
	"github.com/gabriel/manhwa-hub/backend/internal/config"
	"github.com/gabriel/manhwa-hub/backend/internal/extract"
	"github.com/gabriel/manhwa-hub/backend/internal/fetch"
	"github.com/spf13/cobra"
)

type options struct {
	baseURL   string
	selectors string
	timeout   time.Duration
	debug     bool
	page      int
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	defaults, _ := config.Load()
	rootCmd := &cobra.Command{
		Use:           "scrape",
		Short:         "Run the site extractors once and print the result as JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", defaults.SiteBaseURL, "upstream site origin")
	rootCmd.PersistentFlags().StringVar(&opts.selectors, "selectors", defaults.SelectorsPath, "YAML selector overrides")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 20*time.Second, "per request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	homeCmd := &cobra.Command{
		Use:   "home",
		Short: "Extract a listing page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			result, err := engine.ExtractListing(cmd.Context(), opts.page)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	homeCmd.Flags().IntVar(&opts.page, "page", 1, "listing page number")

	mangaCmd := &cobra.Command{
		Use:   "manga <slug>",
		Short: "Extract a series detail page with its chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			detail, err := engine.ExtractMangaDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), detail)
		},
	}

	readerCmd := &cobra.Command{
		Use:   "reader <chapter-url>",
		Short: "Extract the page images of a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			pages, err := engine.ExtractReaderPages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pages)
		},
	}

	genresCmd := &cobra.Command{
		Use:   "genres",
		Short: "Extract the genre index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			genres, err := engine.ExtractGenreIndex(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), genres)
		},
	}

	rootCmd.AddCommand(homeCmd, mangaCmd, readerCmd, genresCmd)
	return rootCmd
}

func (o *options) engine() (*extract.Engine, error) {
	level := slog.LevelWarn
	if o.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	selectors, err := extract.LoadSelectors(o.selectors)
	if err != nil {
		return nil, fmt.Errorf("load selectors: %w", err)
	}

	fetcher := fetch.NewFetcher(fetch.Options{BaseURL: o.baseURL, Timeout: o.timeout, Logger: logger})
	return extract.NewEngine(extract.Config{
		BaseURL:   o.baseURL,
		Timeout:   o.timeout,
		Selectors: selectors,
		Logger:    logger,
	}, fetcher, cache.New(cache.DefaultTTL, cache.DefaultSize, nil)), nil
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}
