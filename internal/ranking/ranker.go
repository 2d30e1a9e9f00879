// Package ranking orders matching documents by term frequency.
package ranking

import (
	"context"
	"fmt"
	"slices"
)

// CountSource returns the stored counts of terms in documents.
// Missing (document, term) pairs are simply absent from the result.
type CountSource interface {
	TermCounts(ctx context.Context, docIDs []int64, terms []string) (map[int64]map[string]int, error)
}

// Scored is a ranked document.
type Scored struct {
	DocumentID int64
	Score      int
}

// Rank scores every document in docIDs as the sum, over the distinct query terms, of its
// stored count for that term, and returns them by descending score then ascending id.
// Documents containing none of the terms score zero but are still returned.
func Rank(ctx context.Context, src CountSource, docIDs []int64, terms []string) ([]Scored, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}
	terms = distinct(terms)

	counts := map[int64]map[string]int{}
	if len(terms) > 0 {
		var err error
		counts, err = src.TermCounts(ctx, docIDs, terms)
		if err != nil {
			return nil, fmt.Errorf("failed to load term counts: %w", err)
		}
	}

	scores := make(map[int64]int, len(docIDs))
	for _, id := range docIDs {
		score := 0
		for _, t := range terms {
			score += counts[id][t]
		}
		scores[id] = score
	}
	return Order(scores), nil
}

// Order sorts scores by descending score, breaking ties by ascending document id.
func Order(scores map[int64]int) []Scored {
	out := make([]Scored, 0, len(scores))
	for id, s := range scores {
		out = append(out, Scored{DocumentID: id, Score: s})
	}
	slices.SortFunc(out, func(a, b Scored) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		switch {
		case a.DocumentID < b.DocumentID:
			return -1
		case a.DocumentID > b.DocumentID:
			return 1
		}
		return 0
	})
	return out
}

func distinct(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
