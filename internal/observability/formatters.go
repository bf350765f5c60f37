// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/daniela/profile-archiver/internal/pipeline"
	"github.com/daniela/profile-archiver/internal/record"
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
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProfile outputs a human-readable summary of the extracted profile.
func (p *Printer) PrintProfile(profile *record.ProfileRecord) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", profile.Name))
	sb.WriteString(fmt.Sprintf("Handle:   %s\n", profile.Handle))
	sb.WriteString(fmt.Sprintf("Heading:  %s\n", profile.Heading))
	sb.WriteString(fmt.Sprintf("Ratings:  %s\n", profile.RatingCount))
	sb.WriteString(fmt.Sprintf("Skills:   %s\n", joinLimited(profile.Skills)))
	sb.WriteString(fmt.Sprintf("Listings: %d", len(profile.Listings)))

	p.printBox("EXTRACTED PROFILE", sb.String())
}

// PrintResult outputs a human-readable summary of an archive result.
func (p *Printer) PrintResult(res *pipeline.Result) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Profile CID: %s\n", res.ProfileCID))
	sb.WriteString(fmt.Sprintf("Gateway:     %s\n", res.ProfileGatewayURL))
	if res.LedgerTx != "" {
		sb.WriteString(fmt.Sprintf("Ledger tx:   %s\n", res.LedgerTx))
	}
	sb.WriteString(fmt.Sprintf("Listings:    %d published", len(res.Listings)))
	for i, l := range res.Listings {
		if i >= maxItemsToShow {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more", len(res.Listings)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("\n  %s -> %s", l.Title, l.CID))
	}

	p.printBox("ARCHIVE RESULT", sb.String())
}

func joinLimited(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	if len(items) <= maxItemsToShow {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:maxItemsToShow], ", ") + fmt.Sprintf(" (+%d more)", len(items)-maxItemsToShow)
}
