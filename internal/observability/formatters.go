// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/profile-images/internal/images"
	"github.com/jonathan/profile-images/internal/scrape"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to width runes, marking the cut with "...".
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// PrintResult outputs a summary of the images selected for one profile.
func (p *Printer) PrintResult(profileURL string, result *images.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Profile:      %s\n", orNone(profileURL))
	fmt.Fprintf(&sb, "Picture:      %s\n", orNone(result.ProfilePicture))
	if result.ProfilePictureHD != result.ProfilePicture {
		fmt.Fprintf(&sb, "Picture HD:   %s\n", orNone(result.ProfilePictureHD))
	}
	fmt.Fprintf(&sb, "Cover:        %s\n", orNone(result.CoverPhoto))
	if result.CoverPhotoHD != result.CoverPhoto {
		fmt.Fprintf(&sb, "Cover HD:     %s\n", orNone(result.CoverPhotoHD))
	}
	fmt.Fprintf(&sb, "Images found: %d\n", len(result.AllImages))

	if len(result.PhotoImages) > 0 {
		sb.WriteString("\nPhotos:\n")
		count := min(len(result.PhotoImages), maxItemsToShow)
		for _, u := range result.PhotoImages[:count] {
			fmt.Fprintf(&sb, "  • %s (%d)\n", u, images.SizeScore(u))
		}
		if len(result.PhotoImages) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(result.PhotoImages)-maxItemsToShow)
		}
	}

	p.printBox("EXTRACTED IMAGES", sb.String())
}

// PrintCandidates outputs how the candidate URLs of a document were classified.
func (p *Printer) PrintCandidates(refs []images.ImageReference) {
	if len(refs) == 0 {
		return
	}

	counts := make(map[images.Role]int)
	withID := 0
	for _, ref := range refs {
		counts[ref.Role]++
		if ref.AssetID != "" {
			withID++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Candidates: %d (%d with asset id)\n", len(refs), withID)
	for _, role := range []images.Role{images.RoleProfile, images.RoleCover, images.RoleGeneric, images.RoleRejected} {
		fmt.Fprintf(&sb, "  %-9s %d\n", role, counts[role])
	}

	p.printBox("CLASSIFIED CANDIDATES", sb.String())
}

// PrintBatchSummary outputs one line per scraped URL.
func (p *Printer) PrintBatchSummary(outcomes []*scrape.Outcome) {
	if len(outcomes) == 0 {
		return
	}

	var sb strings.Builder
	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			fmt.Fprintf(&sb, "✗ %s\n    %v\n", out.RequestURL, out.Err)
			continue
		}
		source := "fetched"
		if out.FromCache {
			source = "cached"
		}
		fmt.Fprintf(&sb, "✓ %s\n    %d images, %s in %s\n",
			out.ProfileURL, len(out.Result.AllImages), source, out.Elapsed.Round(1e6))
	}
	fmt.Fprintf(&sb, "\n%d succeeded, %d failed\n", len(outcomes)-failed, failed)

	p.printBox("BATCH SUMMARY", sb.String())
}
