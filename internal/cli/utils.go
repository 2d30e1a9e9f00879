// Package cli provides output helpers for the DocuFind command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/docufind/internal/indexer"
	"github.com/hyperjump/docufind/internal/models"
	"github.com/hyperjump/docufind/pkg/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/xuri/excelize/v2"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	writeSearchResultsText(w, response)
	return nil
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	if response.Malformed {
		fmt.Fprintf(w, "\nQuery %q was not understood: %s\n", response.Query, response.Message)
		fmt.Fprintln(w, "Use one or more words, or two words joined by \"and\", \"or\" or \"not\".")
		return
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n", response.Total, response.QueryTime)
	if len(response.Terms) > 0 {
		fmt.Fprintf(w, "Terms: %s\n", strings.Join(response.Terms, ", "))
	}
	fmt.Fprintln(w)
	for _, result := range response.Results {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Rank: %d | Score: %d | ID: %d\n", result.Rank, result.Score, result.DocumentID)
		fmt.Fprintf(w, "File: %s (%s)\n", result.Filename, result.Type)
		if result.Snippet != "" {
			fmt.Fprintf(w, "\n%s\n", result.Snippet)
		}
		fmt.Fprintln(w)
	}
	if len(response.Results) == 0 && len(response.Suggestions) > 0 {
		fmt.Fprintf(w, "Did you mean: %s?\n", strings.Join(response.Suggestions, " / "))
	}
}

// WriteStats writes corpus statistics to w.
func WriteStats(w io.Writer, stats *models.CorpusStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "Documents:         %d\n", stats.Documents)
	fmt.Fprintf(w, "Unique terms:      %d\n", stats.UniqueTerms)
	fmt.Fprintf(w, "Term rows:         %d\n", stats.TermRows)
	fmt.Fprintf(w, "Total occurrences: %d\n", stats.TotalOccurrences)
	if len(stats.TopTerms) > 0 {
		fmt.Fprintln(w, "\nTop terms:")
		writeTermCounts(w, stats.TopTerms)
	}
	if len(stats.PerDocument) > 0 {
		fmt.Fprintln(w, "\nDocuments:")
		for _, d := range stats.PerDocument {
			fmt.Fprintf(w, "  %5d  %-40s %6d terms, %5d unique\n", d.DocumentID, utils.Truncate(d.Filename, 37), d.TotalTerms, d.UniqueTerms)
		}
	}
	return nil
}

// WriteDocumentTerms writes the most frequent terms of one document.
func WriteDocumentTerms(w io.Writer, terms *models.DocumentTerms, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, terms)
	}
	fmt.Fprintf(w, "%s (id %d)\n", terms.Filename, terms.DocumentID)
	writeTermCounts(w, terms.Terms)
	return nil
}

func writeTermCounts(w io.Writer, terms []models.TermCount) {
	for _, tc := range terms {
		fmt.Fprintf(w, "  %-24s %d\n", tc.Term, tc.Count)
	}
}

// WriteReindexReport writes the outcome of a re-index run.
func WriteReindexReport(w io.Writer, report *indexer.ReindexReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Re-indexed %d documents in %s (run %s)\n",
		report.Indexed, report.Duration.Round(time.Millisecond), report.RunID)
	writeNames(w, "Empty", report.Empty)
	writeNames(w, "Failed", report.Failed)
	writeNames(w, "Skipped", report.Skipped)
	return nil
}

func writeNames(w io.Writer, label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", label, len(names))
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Stats workbook sheet names.
const (
	SheetSummary   = "Summary"
	SheetTopTerms  = "Top terms"
	SheetDocuments = "Documents"
)

// WriteStatsWorkbook exports corpus statistics to an xlsx workbook at path.
func WriteStatsWorkbook(path string, stats *models.CorpusStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	summary := [][]any{
		{"Metric", "Value"},
		{"Documents", stats.Documents},
		{"Unique terms", stats.UniqueTerms},
		{"Term rows", stats.TermRows},
		{"Total occurrences", stats.TotalOccurrences},
	}
	if err := setRows(f, SheetSummary, summary); err != nil {
		return err
	}

	top := [][]any{{"Term", "Count"}}
	for _, tc := range stats.TopTerms {
		top = append(top, []any{tc.Term, tc.Count})
	}
	if _, err := f.NewSheet(SheetTopTerms); err != nil {
		return err
	}
	if err := setRows(f, SheetTopTerms, top); err != nil {
		return err
	}

	docs := [][]any{{"ID", "Filename", "Total terms", "Unique terms", "Top terms"}}
	for _, d := range stats.PerDocument {
		names := make([]string, len(d.TopTerms))
		for i, tc := range d.TopTerms {
			names[i] = fmt.Sprintf("%s (%d)", tc.Term, tc.Count)
		}
		docs = append(docs, []any{d.DocumentID, d.Filename, d.TotalTerms, d.UniqueTerms, strings.Join(names, ", ")})
	}
	if _, err := f.NewSheet(SheetDocuments); err != nil {
		return err
	}
	if err := setRows(f, SheetDocuments, docs); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// NewProgressBar returns a re-index progress callback drawing a bar on w.
// The bar is created on the first call, once the total is known.
func NewProgressBar(w io.Writer, description string) indexer.Progress {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}
		_ = bar.Set(done)
	}
}
