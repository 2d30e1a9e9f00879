package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/docufind/internal/indexer"
	"github.com/hyperjump/docufind/internal/models"
	"github.com/xuri/excelize/v2"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "chat and chien",
		QueryTime: 42,
		Total:     1,
		Terms:     []string{"chat", "chien"},
		Results: []*models.SearchResult{
			{
				DocumentID: 7,
				Filename:   "animaux/chats.txt",
				Type:       models.DocTypeText,
				Score:      5,
				Snippet:    "le chat et le chien",
				Rank:       1,
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.QueryTime != response.QueryTime {
		t.Errorf("decoded query=%q query_time=%d, want query=%q query_time=%d",
			decoded.Query, decoded.QueryTime, response.Query, response.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].DocumentID != 7 {
		t.Errorf("decoded results: want one result with id 7, got %+v", decoded.Results)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 results", "42ms", "Terms: chat, chien", "Rank: 1", "Score: 5", "ID: 7", "animaux/chats.txt", "le chat et le chien"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSearchResults_text_malformed(t *testing.T) {
	response := &models.SearchResponse{Query: "a b c", Malformed: true, Message: "unsupported query form"}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "not understood") || !strings.Contains(out, "unsupported query form") {
		t.Errorf("malformed output:\n%s", out)
	}
	if strings.Contains(out, "Found") {
		t.Errorf("malformed query should not report a result count:\n%s", out)
	}
}

func TestWriteSearchResults_text_suggestions(t *testing.T) {
	response := &models.SearchResponse{Query: "maizon", Suggestions: []string{"maison"}}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Did you mean: maison?") {
		t.Errorf("expected suggestion in output:\n%s", buf.String())
	}
}

func TestWriteSearchResults_unknownFormatTreatedAsText(t *testing.T) {
	response := &models.SearchResponse{Query: "x"}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputFormat("unknown")); err != nil {
		t.Fatalf("WriteSearchResults(unknown): %v", err)
	}
	if !strings.Contains(buf.String(), "Found") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func sampleStats() *models.CorpusStats {
	return &models.CorpusStats{
		Documents:        2,
		TermRows:         5,
		UniqueTerms:      4,
		TotalOccurrences: 9,
		TopTerms:         []models.TermCount{{Term: "chat", Count: 4}, {Term: "chien", Count: 3}},
		PerDocument: []*models.DocumentStats{
			{DocumentID: 1, Filename: "a.txt", TotalTerms: 6, UniqueTerms: 3, TopTerms: []models.TermCount{{Term: "chat", Count: 4}}},
			{DocumentID: 2, Filename: "b.txt", TotalTerms: 3, UniqueTerms: 2},
		},
	}
}

func TestWriteStats_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStats(&buf, sampleStats(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Documents:         2", "Unique terms:      4", "Total occurrences: 9", "chat", "a.txt", "b.txt"} {
		if !strings.Contains(out, sub) {
			t.Errorf("stats output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteStats_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStats(&buf, sampleStats(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.CorpusStats
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Documents != 2 || len(decoded.PerDocument) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteDocumentTerms_text(t *testing.T) {
	terms := &models.DocumentTerms{DocumentID: 3, Filename: "c.txt", Terms: []models.TermCount{{Term: "plage", Count: 2}}}
	var buf bytes.Buffer
	if err := WriteDocumentTerms(&buf, terms, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "c.txt (id 3)") || !strings.Contains(buf.String(), "plage") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestWriteReindexReport_text(t *testing.T) {
	report := &indexer.ReindexReport{
		RunID:    "run-1",
		Indexed:  3,
		Empty:    []string{"vide.txt"},
		Skipped:  []string{"image.png"},
		Duration: 1500 * time.Millisecond,
	}
	var buf bytes.Buffer
	if err := WriteReindexReport(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Re-indexed 3 documents", "1.5s", "run-1", "Empty (1):", "vide.txt", "Skipped (1):", "image.png"} {
		if !strings.Contains(out, sub) {
			t.Errorf("report output missing %q:\n%s", sub, out)
		}
	}
	if strings.Contains(out, "Failed") {
		t.Errorf("no failures expected in output:\n%s", out)
	}
}

func TestWriteStatsWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.xlsx")
	if err := WriteStatsWorkbook(path, sampleStats()); err != nil {
		t.Fatalf("WriteStatsWorkbook: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{SheetSummary, SheetTopTerms, SheetDocuments}
	if strings.Join(sheets, "|") != strings.Join(want, "|") {
		t.Errorf("sheets = %v, want %v", sheets, want)
	}
	if v, _ := f.GetCellValue(SheetSummary, "B2"); v != "2" {
		t.Errorf("Summary!B2 = %q, want 2", v)
	}
	if v, _ := f.GetCellValue(SheetTopTerms, "A2"); v != "chat" {
		t.Errorf("Top terms!A2 = %q, want chat", v)
	}
	if v, _ := f.GetCellValue(SheetDocuments, "E2"); v != "chat (4)" {
		t.Errorf("Documents!E2 = %q, want chat (4)", v)
	}
	rows, err := f.GetRows(SheetDocuments)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("Documents rows = %d, want header plus 2", len(rows))
	}
}

func TestNewProgressBar(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgressBar(&buf, "Indexing")
	for i := 1; i <= 3; i++ {
		progress(i, 3)
	}
	if !strings.Contains(buf.String(), "Indexing") {
		t.Errorf("progress output = %q, want the description", buf.String())
	}
}
