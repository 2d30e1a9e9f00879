package models

import (
	"errors"
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *SearchQuery
		wantErr bool
	}{
		{"empty query", &SearchQuery{Query: ""}, true},
		{"whitespace query", &SearchQuery{Query: "  \t"}, true},
		{"valid query", &SearchQuery{Query: "chat"}, false},
		{"sets default limit", &SearchQuery{Query: "x", Limit: 0}, false},
		{"caps limit at 100", &SearchQuery{Query: "x", Limit: 200}, false},
		{"clamps negative offset", &SearchQuery{Query: "x", Offset: -3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(20, 100)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyQuery) {
					t.Errorf("expected ErrEmptyQuery, got %v", err)
				}
				return
			}
			if tt.query.Limit == 0 {
				t.Error("expected default limit to be set")
			}
			if tt.name == "sets default limit" && tt.query.Limit != 20 {
				t.Errorf("expected default limit 20, got %d", tt.query.Limit)
			}
			if tt.query.Limit > 100 {
				t.Errorf("expected limit capped at 100, got %d", tt.query.Limit)
			}
			if tt.query.Offset < 0 {
				t.Errorf("expected offset >= 0, got %d", tt.query.Offset)
			}
		})
	}
}

func TestDocTypeFromPath(t *testing.T) {
	tests := []struct {
		path string
		want DocType
		ok   bool
	}{
		{"a.txt", DocTypeText, true},
		{"dir/Report.DOCX", DocTypeDOCX, true},
		{"x.pdf", DocTypePDF, true},
		{"page.htm", DocTypeHTML, true},
		{"page.html", DocTypeHTML, true},
		{"sheet.xlsx", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, ok := DocTypeFromPath(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DocTypeFromPath(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}
