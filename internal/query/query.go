// Package query parses boolean keyword queries and evaluates them against the inverted index.
//
// The grammar is deliberately small: a single term, a "left OP right" triple where OP is
// and/et, or/ou or not, or a list of plain terms that are OR-ed together. Any other shape
// is Invalid and matches nothing.
package query

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// Kind tags the shape of a parsed query.
type Kind int

const (
	Invalid Kind = iota
	Term
	And
	Or
	Not
	DefaultOr
)

func (k Kind) String() string {
	switch k {
	case Term:
		return "term"
	case And:
		return "and"
	case Or:
		return "or"
	case Not:
		return "not"
	case DefaultOr:
		return "default-or"
	default:
		return "invalid"
	}
}

// Query is a parsed query. Terms holds the canonical operand terms in query order;
// for Not, Terms[0] is kept and Terms[1] excluded.
type Query struct {
	Kind  Kind
	Terms []string
	Raw   string
}

// Reason explains why an Invalid query was rejected. Empty for valid queries.
func (q Query) Reason() string {
	if q.Kind != Invalid {
		return ""
	}
	if strings.TrimSpace(q.Raw) == "" {
		return "empty query"
	}
	return fmt.Sprintf("unsupported query %q: use a term, \"a and b\", \"a or b\", \"a not b\" or several terms", q.Raw)
}

var operators = map[string]Kind{
	"and": And,
	"et":  And,
	"or":  Or,
	"ou":  Or,
	"not": Not,
}

// Canonicalizer maps a query word to its index form.
type Canonicalizer func(word string) string

// Parse parses raw. canon is applied to every operand; nil leaves operands lowercased only.
func Parse(raw string, canon Canonicalizer) Query {
	q := Query{Raw: raw}
	tokens := strings.Fields(strings.ToLower(raw))

	var ops []int
	for i, tok := range tokens {
		if _, ok := operators[tok]; ok {
			ops = append(ops, i)
		}
	}

	switch {
	case len(tokens) == 0:
		return q
	case len(tokens) == 1 && len(ops) == 0:
		q.Kind = Term
	case len(tokens) == 3 && len(ops) == 1 && ops[0] == 1:
		q.Kind = operators[tokens[1]]
		tokens = []string{tokens[0], tokens[2]}
	case len(tokens) > 1 && len(ops) == 0:
		q.Kind = DefaultOr
	default:
		return q
	}

	q.Terms = make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if canon != nil {
			tok = canon(tok)
		}
		q.Terms = append(q.Terms, tok)
	}
	return q
}

// DistinctTerms returns the operand terms without repeats, in query order.
// For Not queries only the kept term counts towards ranking.
func (q Query) DistinctTerms() []string {
	terms := q.Terms
	if q.Kind == Not && len(terms) == 2 {
		terms = terms[:1]
	}
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// PostingSource returns the documents containing a term.
// The returned bitmap is read only.
type PostingSource interface {
	Postings(term string) *roaring.Bitmap
}

// Evaluate returns the ids of the documents matching q. The result is a fresh bitmap.
func Evaluate(q Query, src PostingSource) *roaring.Bitmap {
	switch q.Kind {
	case Term:
		return src.Postings(q.Terms[0]).Clone()
	case And:
		return roaring.And(src.Postings(q.Terms[0]), src.Postings(q.Terms[1]))
	case Or:
		return roaring.Or(src.Postings(q.Terms[0]), src.Postings(q.Terms[1]))
	case Not:
		return roaring.AndNot(src.Postings(q.Terms[0]), src.Postings(q.Terms[1]))
	case DefaultOr:
		sets := make([]*roaring.Bitmap, 0, len(q.Terms))
		for _, t := range q.Terms {
			sets = append(sets, src.Postings(t))
		}
		return roaring.FastOr(sets...)
	default:
		return roaring.New()
	}
}
