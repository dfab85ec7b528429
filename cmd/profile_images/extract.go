package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jonathan/profile-images/internal/config"
	"github.com/jonathan/profile-images/internal/images"
	"github.com/jonathan/profile-images/internal/observability"
	"github.com/jonathan/profile-images/internal/schemas"
	"github.com/jonathan/profile-images/internal/scrape"
	"github.com/jonathan/profile-images/internal/server"
	"github.com/jonathan/profile-images/internal/types"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract profile, cover and gallery images",
	Long: `Extract images from one or more profile URLs, or from a saved HTML page.

Each URL produces one response object in the same shape as GET /api/all.
A single URL or --html writes one object; several URLs write an array.`,
	RunE: runExtract,
}

var (
	extractURLs        []string
	extractHTMLFile    string
	extractOutputFile  string
	extractConcurrency int
	extractVerbose     bool
	extractSkipCache   bool
)

func init() {
	extractCmd.Flags().StringArrayVarP(&extractURLs, "url", "u", nil, "Profile URL (repeatable)")
	extractCmd.Flags().StringVar(&extractHTMLFile, "html", "", "Path to a saved profile page (skips fetching)")
	extractCmd.Flags().StringVarP(&extractOutputFile, "out", "o", "", "Path to output JSON file (default stdout)")
	extractCmd.Flags().IntVarP(&extractConcurrency, "concurrency", "c", 0, "Profiles fetched in parallel (default from config)")
	extractCmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "Print a summary of the extraction to stderr")
	extractCmd.Flags().BoolVar(&extractSkipCache, "skip-cache", false, "Always fetch fresh pages")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(_ *cobra.Command, _ []string) error {
	if len(extractURLs) == 0 && extractHTMLFile == "" {
		return fmt.Errorf("must provide --url or --html")
	}
	if len(extractURLs) > 0 && extractHTMLFile != "" {
		return fmt.Errorf("cannot use --url with --html")
	}

	printer := observability.NewPrinter(os.Stderr)

	if extractHTMLFile != "" {
		resp, err := extractFromFile(extractHTMLFile, printer)
		if err != nil {
			return err
		}
		return writeOutput(resp, extractOutputFile)
	}

	cfg, err := config.Resolve(configPath, config.Config{
		Concurrency: extractConcurrency,
		Verbose:     extractVerbose,
		SkipCache:   extractSkipCache,
	})
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	rt, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	outcomes := rt.scraper.ScrapeMany(ctx, extractURLs, cfg.Concurrency)
	if cfg.Verbose {
		for _, out := range outcomes {
			if out.Err == nil {
				printer.PrintResult(out.ProfileURL, out.Result)
			}
		}
		printer.PrintBatchSummary(outcomes)
	}

	bodies := make([]any, len(outcomes))
	failed := 0
	for i, out := range outcomes {
		bodies[i] = outcomeBody(out)
		if out.Err != nil {
			failed++
		}
	}

	var output any = bodies
	if len(bodies) == 1 {
		output = bodies[0]
	}
	if err := writeOutput(output, extractOutputFile); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d extractions failed", failed, len(outcomes))
	}
	return nil
}

// extractFromFile runs the image pipeline over a saved page.
func extractFromFile(path string, printer *observability.Printer) (*types.ExtractResponse, error) {
	start := time.Now()
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML file: %w", err)
	}

	document := string(content)
	result := images.Extract(document)
	if extractVerbose {
		printer.PrintCandidates(images.ClassifyAll(images.Collect(document)))
		printer.PrintResult("", result)
	}

	return types.NewExtractResponse("", result, false, time.Since(start)), nil
}

// outcomeBody renders an outcome the way the API would.
func outcomeBody(out *scrape.Outcome) any {
	if out.Err == nil {
		return types.NewExtractResponse(out.ProfileURL, out.Result, out.FromCache, out.Elapsed)
	}

	body := types.ErrorResponse{Error: "Failed to scrape profile", Message: out.Err.Error()}
	switch server.HTTPStatus(out.Err) {
	case http.StatusBadRequest:
		body.Error = "Invalid URL"
	case http.StatusInternalServerError:
		body.Error = "Processing failed"
	}
	return body
}

// writeOutput writes v as indented JSON to path, or to stdout when path is empty.
// A single extraction response written to a file is checked against its schema.
func writeOutput(v any, path string) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if path == "" {
		_, err = fmt.Fprintln(os.Stdout, string(jsonBytes))
		return err
	}

	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	if _, ok := v.(*types.ExtractResponse); ok {
		if schemaPath := schemas.ResolveSchemaPath(schemas.ExtractionResponseSchema); schemaPath != "" {
			if err := schemas.ValidateJSON(schemaPath, path); err != nil {
				var validationErr *schemas.ValidationError
				if errors.As(err, &validationErr) {
					return fmt.Errorf("generated JSON does not validate against schema: %w", err)
				}
				_, _ = fmt.Fprintf(os.Stderr, "Warning: Could not validate output against schema: %v\n", err)
			}
		}
	}

	_, _ = fmt.Fprintf(os.Stderr, "Output: %s\n", path)
	return nil
}
