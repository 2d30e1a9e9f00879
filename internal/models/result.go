package models

// SearchResult represents a single ranked hit.
type SearchResult struct {
	DocumentID int64   `json:"document_id"`
	Filename   string  `json:"filename"`
	Type       DocType `json:"type"`
	Score      int     `json:"score"`
	Snippet    string  `json:"snippet,omitempty"`
	Rank       int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	// Terms are the canonical operand terms the query was evaluated with.
	Terms []string `json:"terms,omitempty"`
	// Malformed is set when the query matched none of the supported boolean forms.
	// Results are then always empty and Message explains why.
	Malformed bool   `json:"malformed,omitempty"`
	Message   string `json:"message,omitempty"`
	// Suggestions holds "did you mean" alternatives when nothing matched.
	Suggestions []string `json:"suggestions,omitempty"`
}

// DocumentStats summarizes the term rows of one document.
type DocumentStats struct {
	DocumentID  int64       `json:"document_id"`
	Filename    string      `json:"filename"`
	TotalTerms  int         `json:"total_terms"`
	UniqueTerms int         `json:"unique_terms"`
	TopTerms    []TermCount `json:"top_terms,omitempty"`
}

// DocumentTerms lists the most frequent terms of one document, for word clouds.
type DocumentTerms struct {
	DocumentID int64       `json:"document_id"`
	Filename   string      `json:"filename"`
	Terms      []TermCount `json:"terms"`
}

// CorpusStats are aggregate statistics over the current term frequency rows.
type CorpusStats struct {
	Documents        int64            `json:"documents"`
	TermRows         int64            `json:"term_rows"`
	UniqueTerms      int64            `json:"unique_terms"`
	TotalOccurrences int64            `json:"total_occurrences"`
	TopTerms         []TermCount      `json:"top_terms,omitempty"`
	PerDocument      []*DocumentStats `json:"per_document,omitempty"`
}
