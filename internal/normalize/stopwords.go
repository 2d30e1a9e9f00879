package normalize

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrEmptyStopword is returned when adding or removing a blank word.
	ErrEmptyStopword = errors.New("stopword cannot be empty")
	// ErrDuplicateStopword is returned when adding a word already in the set.
	ErrDuplicateStopword = errors.New("stopword already present")
	// ErrUnknownStopword is returned when removing a word not in the set.
	ErrUnknownStopword = errors.New("stopword not present")
)

// DefaultStopwords is the list written when no stopword file exists yet.
var DefaultStopwords = []string{"le", "la", "les", "un", "une", "et", "de", "du", "des", "à", "au", "aux"}

// StopwordSet is an ordered, mutable set of lowercase words excluded from indexing.
// It is safe for concurrent use. When backed by a file, Add and Remove persist the list.
// Changes only affect text normalized afterwards; already indexed documents keep their
// terms until they are re-indexed.
type StopwordSet struct {
	mu    sync.RWMutex
	path  string
	words []string
	set   map[string]struct{}
}

// NewStopwordSet returns an in-memory set holding words. Blank and repeated words are skipped.
func NewStopwordSet(words ...string) *StopwordSet {
	s := &StopwordSet{}
	s.replace(words)
	return s
}

// LoadStopwords reads a stopword file, one word per line.
// If the file does not exist it is created with DefaultStopwords.
func LoadStopwords(path string) (*StopwordSet, error) {
	s := &StopwordSet{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.replace(DefaultStopwords)
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file, replacing the in-memory list.
// It is a no-op for sets without a file.
func (s *StopwordSet) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read stopwords: %w", err)
	}
	var words []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		words = append(words, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to parse stopwords: %w", err)
	}

	s.mu.Lock()
	s.replace(words)
	s.mu.Unlock()
	return nil
}

// Contains reports whether word is a stopword. word must already be lowercase.
func (s *StopwordSet) Contains(word string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	_, ok := s.set[word]
	s.mu.RUnlock()
	return ok
}

// List returns a copy of the words in insertion order.
func (s *StopwordSet) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.words)
}

// Len returns the number of stopwords.
func (s *StopwordSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Add appends word to the set and persists the list.
func (s *StopwordSet) Add(word string) error {
	w := cleanStopword(word)
	if w == "" {
		return ErrEmptyStopword
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[w]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStopword, w)
	}
	s.words = append(s.words, w)
	s.set[w] = struct{}{}
	if err := s.save(); err != nil {
		s.words = s.words[:len(s.words)-1]
		delete(s.set, w)
		return err
	}
	return nil
}

// Remove deletes word from the set and persists the list.
func (s *StopwordSet) Remove(word string) error {
	w := cleanStopword(word)
	if w == "" {
		return ErrEmptyStopword
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.words, w)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStopword, w)
	}
	prev := slices.Clone(s.words)
	s.words = slices.Delete(s.words, i, i+1)
	delete(s.set, w)
	if err := s.save(); err != nil {
		s.words = prev
		s.set[w] = struct{}{}
		return err
	}
	return nil
}

// replace swaps the contents; callers hold the write lock when the set is shared.
func (s *StopwordSet) replace(words []string) {
	s.words = make([]string, 0, len(words))
	s.set = make(map[string]struct{}, len(words))
	for _, word := range words {
		w := cleanStopword(word)
		if w == "" {
			continue
		}
		if _, ok := s.set[w]; ok {
			continue
		}
		s.words = append(s.words, w)
		s.set[w] = struct{}{}
	}
}

func (s *StopwordSet) save() error {
	if s.path == "" {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create stopwords directory: %w", err)
		}
	}
	data := strings.Join(s.words, "\n") + "\n"
	if err := os.WriteFile(s.path, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write stopwords: %w", err)
	}
	return nil
}

func cleanStopword(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
