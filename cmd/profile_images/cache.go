package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/profile-images/internal/config"
	"github.com/jonathan/profile-images/internal/fetch"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the page cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached state of a profile page",
	RunE:  runCacheShow,
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Mark a cached profile page as stale",
	RunE:  runCacheInvalidate,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired pages from the cache",
	RunE:  runCachePurge,
}

var cacheURL string

func init() {
	for _, cmd := range []*cobra.Command{cacheShowCmd, cacheInvalidateCmd} {
		cmd.Flags().StringVarP(&cacheURL, "url", "u", "", "Profile URL (required)")
		_ = cmd.MarkFlagRequired("url")
	}
	cacheCmd.AddCommand(cacheShowCmd, cacheInvalidateCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openCache resolves the configuration and connects to the database.
func openCache(ctx context.Context) (*app, error) {
	cfg, err := config.Resolve(configPath, config.Config{})
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	rt, err := newApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := rt.requireDB(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func runCacheShow(_ *cobra.Command, _ []string) error {
	profileURL, err := fetch.NormalizeProfileURL(cacheURL)
	if err != nil {
		return fmt.Errorf("invalid profile URL: %w", err)
	}

	ctx := context.Background()
	rt, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	page, err := rt.db.GetCrawledPageByURL(ctx, profileURL)
	if err != nil {
		return fmt.Errorf("failed to load cached page: %w", err)
	}
	if page == nil {
		return fmt.Errorf("no cached page for %s", profileURL)
	}

	page.RawHTML = nil
	return writeOutput(page, "")
}

func runCacheInvalidate(_ *cobra.Command, _ []string) error {
	profileURL, err := fetch.NormalizeProfileURL(cacheURL)
	if err != nil {
		return fmt.Errorf("invalid profile URL: %w", err)
	}

	ctx := context.Background()
	rt, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.cache.InvalidateCache(ctx, profileURL); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Invalidated %s\n", profileURL)
	return nil
}

func runCachePurge(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	rt, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	deleted, err := rt.db.DeleteExpiredPages(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Deleted %d expired pages\n", deleted)
	return nil
}
