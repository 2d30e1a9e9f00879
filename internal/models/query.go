package models

import "errors"

// SearchQuery represents a search request.
type SearchQuery struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ErrEmptyQuery is returned by Validate for blank queries.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Validate ensures the search query has valid fields and sets defaults.
// Returns ErrEmptyQuery if the query is empty or only whitespace; otherwise a zero limit
// becomes defaultLimit, limits above maxLimit are capped and a negative offset becomes 0.
func (q *SearchQuery) Validate(defaultLimit, maxLimit int) error {
	if isBlank(q.Query) {
		return ErrEmptyQuery
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
