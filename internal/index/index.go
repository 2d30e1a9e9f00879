// Package index holds the in-memory inverted index mapping terms to document ids.
//
// The index is derived from the term frequency rows in the store. It is never persisted:
// it is built from the store at startup and kept in step with every ingestion, deletion
// and re-index through Update.
package index

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Reader is the read side of the index, valid only inside View or Update.
type Reader interface {
	// Postings returns the documents containing term. The bitmap must not be modified.
	// An absent term yields an empty bitmap.
	Postings(term string) *roaring.Bitmap
	// Terms returns the terms indexed for a document.
	Terms(docID int64) []string
	// Vocabulary returns every indexed term in lexical order.
	Vocabulary() []string
	// TermCount returns the number of distinct indexed terms.
	TermCount() int
	// Documents returns the number of indexed documents.
	Documents() int
}

// Writer mutates the index, valid only inside Update.
type Writer interface {
	Reader
	// Add indexes docID under every term in terms, replacing what was indexed for it before.
	Add(docID int64, terms []string) error
	// Remove drops docID from every posting set. Emptied terms are dropped.
	Remove(docID int64)
	// Replace swaps the whole content for p.
	Replace(p *Postings)
}

// Index is an inverted index safe for concurrent use.
// Readers run concurrently with each other; Update is exclusive.
type Index struct {
	mu sync.RWMutex
	p  *Postings
}

// New returns an empty index.
func New() *Index {
	return &Index{p: NewPostings()}
}

// View runs fn with shared access.
func (idx *Index) View(fn func(Reader) error) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return fn(idx.p)
}

// Update runs fn with exclusive access. Readers never observe a partially applied fn.
func (idx *Index) Update(fn func(Writer) error) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return fn(idx.p)
}

// Postings is the unsynchronized term to document-set mapping.
type Postings struct {
	terms map[string]*roaring.Bitmap
	docs  map[int64][]string
}

// NewPostings returns empty postings.
func NewPostings() *Postings {
	return &Postings{
		terms: make(map[string]*roaring.Bitmap),
		docs:  make(map[int64][]string),
	}
}

// Build returns postings for documents keyed by id. Every term with a count of at least
// one puts the document in that term's set. The result depends only on the input.
func Build(docs map[int64]map[string]int) (*Postings, error) {
	p := NewPostings()
	for id, counts := range docs {
		terms := make([]string, 0, len(counts))
		for term, n := range counts {
			if n >= 1 {
				terms = append(terms, term)
			}
		}
		if err := p.Add(id, terms); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Postings) Postings(term string) *roaring.Bitmap {
	if bm, ok := p.terms[term]; ok {
		return bm
	}
	return roaring.New()
}

func (p *Postings) Terms(docID int64) []string {
	return slices.Clone(p.docs[docID])
}

func (p *Postings) Vocabulary() []string {
	return slices.Sorted(maps.Keys(p.terms))
}

func (p *Postings) TermCount() int {
	return len(p.terms)
}

func (p *Postings) Documents() int {
	return len(p.docs)
}

func (p *Postings) Add(docID int64, terms []string) error {
	id, err := bitmapID(docID)
	if err != nil {
		return err
	}
	p.Remove(docID)
	if len(terms) == 0 {
		return nil
	}
	uniq := slices.Compact(slices.Sorted(slices.Values(terms)))
	for _, term := range uniq {
		bm, ok := p.terms[term]
		if !ok {
			bm = roaring.New()
			p.terms[term] = bm
		}
		bm.Add(id)
	}
	p.docs[docID] = uniq
	return nil
}

func (p *Postings) Remove(docID int64) {
	terms, ok := p.docs[docID]
	if !ok {
		return
	}
	id := uint32(docID)
	for _, term := range terms {
		bm, ok := p.terms[term]
		if !ok {
			continue
		}
		bm.Remove(id)
		if bm.IsEmpty() {
			delete(p.terms, term)
		}
	}
	delete(p.docs, docID)
}

func (p *Postings) Replace(other *Postings) {
	if other == nil {
		other = NewPostings()
	}
	p.terms = other.terms
	p.docs = other.docs
}

// Equal reports whether p and other index the same documents under the same terms.
func (p *Postings) Equal(other *Postings) bool {
	if len(p.terms) != len(other.terms) || len(p.docs) != len(other.docs) {
		return false
	}
	for term, bm := range p.terms {
		obm, ok := other.terms[term]
		if !ok || !bm.Equals(obm) {
			return false
		}
	}
	return true
}

func bitmapID(docID int64) (uint32, error) {
	if docID < 0 || docID > math.MaxUint32 {
		return 0, fmt.Errorf("document id out of range: %d", docID)
	}
	return uint32(docID), nil
}
