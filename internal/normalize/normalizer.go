// Package normalize turns raw document text into index terms.
//
// A Normalizer lowercases text, splits it into runs of Latin letters, apostrophes and
// hyphens, reduces each token through a Lemmatizer and drops short words, words that
// still contain punctuation and stopwords.
package normalize

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinLength is the minimum rune length of a term.
const DefaultMinLength = 3

// Normalizer produces index terms from raw text.
type Normalizer struct {
	stopwords  *StopwordSet
	lemmatizer Lemmatizer
	minLength  int
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLemmatizer sets the lemmatizer. The default passes tokens through unchanged.
func WithLemmatizer(l Lemmatizer) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.lemmatizer = l
		}
	}
}

// WithMinLength sets the minimum term length in runes.
func WithMinLength(length int) Option {
	return func(n *Normalizer) {
		if length > 0 {
			n.minLength = length
		}
	}
}

// New returns a Normalizer filtering against stopwords, which may be nil.
func New(stopwords *StopwordSet, opts ...Option) *Normalizer {
	n := &Normalizer{
		stopwords:  stopwords,
		lemmatizer: Passthrough{},
		minLength:  DefaultMinLength,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Stopwords returns the set the normalizer filters against.
func (n *Normalizer) Stopwords() *StopwordSet {
	return n.stopwords
}

// Normalize returns the terms of text in occurrence order.
// The sequence is lazy and may be ranged over more than once.
func (n *Normalizer) Normalize(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for tok := range Tokens(text) {
			if term, ok := n.term(tok); ok {
				if !yield(term) {
					return
				}
			}
		}
	}
}

// Terms collects Normalize(text) into a slice.
func (n *Normalizer) Terms(text string) []string {
	var out []string
	for t := range n.Normalize(text) {
		out = append(out, t)
	}
	return out
}

// Canonical lowercases and lemmatizes a single query word without filtering it,
// so query operands reach the same root forms as indexed text.
func (n *Normalizer) Canonical(word string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return ""
	}
	return n.lemma(w)
}

// Accept reports whether term would survive the normalization filter as is.
func (n *Normalizer) Accept(term string) bool {
	return n.keep(term, term)
}

// maxLemmaPasses bounds how often a token is fed back through the lemmatizer.
const maxLemmaPasses = 8

// lemma applies the lemmatizer until its output stops changing, so a normalized term
// normalizes to itself.
func (n *Normalizer) lemma(tok string) string {
	cur := tok
	for range maxLemmaPasses {
		next := n.lemmatizer.Lemmatize(cur)
		if next == cur || next == "" {
			return next
		}
		cur = next
	}
	return cur
}

func (n *Normalizer) term(tok string) (string, bool) {
	lemma := n.lemma(tok)
	if !n.keep(tok, lemma) {
		return "", false
	}
	return lemma, true
}

func (n *Normalizer) keep(tok, lemma string) bool {
	if lemma == "" {
		return false
	}
	for _, r := range lemma {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	if utf8.RuneCountInString(lemma) < n.minLength {
		return false
	}
	if n.stopwords.Contains(tok) || n.stopwords.Contains(lemma) {
		return false
	}
	return true
}

// Tokens splits text into lowercase runs of term runes.
func Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		lower := strings.ToLower(text)
		start := -1
		for i, r := range lower {
			if isTermRune(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(lower[start:i]) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			yield(lower[start:])
		}
	}
}

// isTermRune matches ASCII letters, Latin-1 letters and the ' and - joiners.
func isTermRune(r rune) bool {
	switch {
	case r == '\'' || r == '-':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= 0xC0 && r <= 0xFF:
		return r != 0xD7 && r != 0xF7
	}
	return false
}
