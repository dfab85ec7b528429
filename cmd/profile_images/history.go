package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/profile-images/internal/config"
	"github.com/jonathan/profile-images/internal/db"
	"github.com/jonathan/profile-images/internal/fetch"
	"github.com/jonathan/profile-images/internal/scrape"
	"github.com/jonathan/profile-images/internal/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored extractions of a profile",
	Long:  "List extractions recorded for a profile URL, newest first. Requires DATABASE_URL.",
	RunE:  runHistory,
}

var (
	historyURL    string
	historyLimit  int
	historyLatest bool
	historyOutput string
)

func init() {
	historyCmd.Flags().StringVarP(&historyURL, "url", "u", "", "Profile URL (required)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Maximum number of extractions (default from config)")
	historyCmd.Flags().BoolVar(&historyLatest, "latest", false, "Print only the most recent extraction as an API response")
	historyCmd.Flags().StringVarP(&historyOutput, "out", "o", "", "Path to output JSON file (default stdout)")
	_ = historyCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	cfg, err := config.Resolve(configPath, config.Config{HistoryLimit: historyLimit})
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	profileURL, err := fetch.NormalizeProfileURL(historyURL)
	if err != nil {
		return fmt.Errorf("invalid profile URL: %w", err)
	}

	ctx := context.Background()
	rt, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.requireDB(); err != nil {
		return err
	}

	if historyLatest {
		latest, err := rt.db.GetLatestExtraction(ctx, profileURL)
		if err != nil {
			return fmt.Errorf("failed to load extraction: %w", err)
		}
		if latest == nil {
			return fmt.Errorf("no stored extractions for %s", profileURL)
		}
		resp := types.NewExtractResponse(profileURL, scrape.FromExtraction(latest), latest.FromCache,
			msDuration(latest.DurationMS))
		return writeOutput(resp, historyOutput)
	}

	records, err := rt.db.ListExtractions(ctx, profileURL, cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to list extractions: %w", err)
	}
	return writeOutput(historyResponse(profileURL, records), historyOutput)
}

func historyResponse(profileURL string, records []db.Extraction) types.HistoryResponse {
	resp := types.HistoryResponse{
		ProfileURL:  profileURL,
		Count:       len(records),
		Extractions: make([]types.HistoryEntry, 0, len(records)),
	}
	for i := range records {
		rec := &records[i]
		resp.Extractions = append(resp.Extractions, types.NewHistoryEntry(
			rec.ID.String(), scrape.FromExtraction(rec), rec.FromCache, rec.DurationMS, rec.CreatedAt))
	}
	return resp
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
