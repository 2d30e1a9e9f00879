package spelling

import (
	"context"
	"strings"
	"sync"
)

// VocabularySource lists indexed terms, most frequent first.
type VocabularySource interface {
	Vocabulary(ctx context.Context, limit int) ([]string, error)
}

// Suggestion is the closest known term to a word.
type Suggestion struct {
	Word     string `json:"word"`
	Term     string `json:"term"`
	Distance int    `json:"distance"`
}

// Suggester finds close vocabulary terms. The vocabulary is cached until Invalidate.
type Suggester struct {
	source      VocabularySource
	limit       int
	maxDistance int

	mu    sync.RWMutex
	vocab []string
	known map[string]struct{}
	valid bool
	// gen is bumped by Invalidate; a load only fills the cache if gen did not move.
	gen uint64
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithVocabularyLimit bounds the vocabulary to the most frequent n terms.
func WithVocabularyLimit(n int) Option {
	return func(s *Suggester) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithMaxDistance sets the largest distance Correct accepts for a replacement.
func WithMaxDistance(d int) Option {
	return func(s *Suggester) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// NewSuggester returns a Suggester reading its vocabulary from source.
func NewSuggester(source VocabularySource, opts ...Option) *Suggester {
	s := &Suggester{
		source:      source,
		limit:       5000,
		maxDistance: 2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate drops the cached vocabulary so the next call reloads it.
func (s *Suggester) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.vocab, s.known = nil, nil
	s.gen++
	s.mu.Unlock()
}

func (s *Suggester) vocabulary(ctx context.Context) ([]string, map[string]struct{}, error) {
	s.mu.RLock()
	if s.valid {
		defer s.mu.RUnlock()
		return s.vocab, s.known, nil
	}
	gen := s.gen
	s.mu.RUnlock()

	terms, err := s.source.Vocabulary(ctx, s.limit)
	if err != nil {
		return nil, nil, err
	}
	known := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		known[t] = struct{}{}
	}

	s.mu.Lock()
	if s.gen == gen {
		s.vocab, s.known, s.valid = terms, known, true
	}
	s.mu.Unlock()
	return terms, known, nil
}

// Suggest returns the vocabulary term closest to word, whatever its distance.
// ok is false when nothing is indexed.
func (s *Suggester) Suggest(ctx context.Context, word string) (Suggestion, bool, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	vocab, _, err := s.vocabulary(ctx)
	if err != nil {
		return Suggestion{}, false, err
	}
	term, d, ok := Closest(w, vocab)
	if !ok {
		return Suggestion{}, false, nil
	}
	return Suggestion{Word: w, Term: term, Distance: d}, true, nil
}

// Correct replaces every unknown term by its closest vocabulary term within the maximum
// distance. changed is false when no term could be corrected.
func (s *Suggester) Correct(ctx context.Context, terms []string) (corrected []string, changed bool, err error) {
	vocab, known, err := s.vocabulary(ctx)
	if err != nil {
		return nil, false, err
	}
	corrected = make([]string, len(terms))
	for i, t := range terms {
		corrected[i] = t
		if _, ok := known[t]; ok {
			continue
		}
		if term, d, ok := Closest(t, vocab); ok && d > 0 && d <= s.maxDistance {
			corrected[i] = term
			changed = true
		}
	}
	return corrected, changed, nil
}
