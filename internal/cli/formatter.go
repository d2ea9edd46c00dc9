package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/objcensus/internal/census"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// PrintJSON outputs v in JSON format.
func PrintJSON(v any, writer io.Writer) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintTable outputs counts in human-readable table format, one line per kind.
// When report is non-nil a summary of the loose-object walk follows.
func PrintTable(counts census.Counts, report *census.Report, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)

	for _, kind := range census.Kinds {
		fmt.Fprintf(w, "%s\t%d\n", kind, counts.Get(kind))
	}

	if report != nil {
		fmt.Fprintln(w, "\nStats:\t")
		fmt.Fprintf(w, "Files scanned:\t%d (%s)\n", report.Files, humanize.IBytes(uint64(report.Bytes))) //nolint:gosec // Sizes are never negative
		fmt.Fprintf(w, "Skipped:\t%d malformed, %d unreadable\n", report.Malformed, report.IOErrors)
		fmt.Fprintf(w, "Traversal errors:\t%d\n", report.TraversalErrors)
		fmt.Fprintf(w, "\nElapsed:\t%v\n", report.Elapsed)
	}

	return w.Flush()
}
