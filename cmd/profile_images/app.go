package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/profile-images/internal/config"
	"github.com/jonathan/profile-images/internal/db"
	"github.com/jonathan/profile-images/internal/fetch"
	"github.com/jonathan/profile-images/internal/scrape"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg     *config.Config
	db      *db.DB // nil without DATABASE_URL
	cache   *fetch.CachedFetcher
	scraper *scrape.Scraper
}

// newApp connects to the database when one is configured and wires the scraper.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	rt := &app{cfg: cfg}

	var store fetch.PageStore
	var history scrape.HistoryStore
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		rt.db = database
		store = database
		history = database
	} else if cfg.Verbose {
		log.Printf("[VERBOSE] DATABASE_URL not set; page cache and history are disabled")
	}

	rt.cache = fetch.NewCachedFetcher(store, &fetch.CachedFetcherConfig{
		CacheTTL:  cfg.CacheDuration(),
		SkipCache: cfg.SkipCache,
	})
	rt.scraper = scrape.New(scrape.Options{
		Fetch:   cfg.FetchOptions(),
		Cache:   rt.cache,
		History: history,
		HomeURL: cfg.HomeURL,
	})
	return rt, nil
}

// requireDB fails when the command needs the database but none is configured.
func (rt *app) requireDB() error {
	if rt.db == nil {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	return nil
}

// Close releases the database pool.
func (rt *app) Close() {
	if rt.db != nil {
		rt.db.Close()
	}
}
