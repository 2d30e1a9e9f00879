package index

import (
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/docufind/internal/normalize"
)

func TestFrequencies(t *testing.T) {
	n := normalize.New(nil)
	got := Frequencies(n.Normalize("chat chien chat"))
	assert.Equal(t, map[string]int{"chat": 2, "chien": 1}, got)
	assert.Empty(t, Frequencies(n.Normalize("")))
}

func TestBuild(t *testing.T) {
	docs := map[int64]map[string]int{
		1: {"chat": 2, "chien": 1},
		2: {"chien": 3},
		3: {"souris": 0},
	}
	p, err := Build(docs)
	require.NoError(t, err)

	assert.Equal(t, []uint32{1}, p.Postings("chat").ToArray())
	assert.Equal(t, []uint32{1, 2}, p.Postings("chien").ToArray())
	assert.True(t, p.Postings("souris").IsEmpty())
	assert.True(t, p.Postings("absent").IsEmpty())
	assert.Equal(t, []string{"chat", "chien"}, p.Vocabulary())
	assert.Equal(t, 2, p.TermCount())
	assert.Equal(t, 2, p.Documents())

	again, err := Build(docs)
	require.NoError(t, err)
	assert.True(t, p.Equal(again))
}

func TestBuild_matchesFrequencyKeys(t *testing.T) {
	n := normalize.New(normalize.NewStopwordSet(normalize.DefaultStopwords...))
	texts := map[int64]string{
		1: "Le chat dort sur le canapé du salon",
		2: "Les chiens aboient, la caravane passe",
		3: "",
	}
	docs := make(map[int64]map[string]int)
	for id, text := range texts {
		docs[id] = Frequencies(n.Normalize(text))
	}
	p, err := Build(docs)
	require.NoError(t, err)

	for id, counts := range docs {
		want := slices.Sorted(maps.Keys(counts))
		if len(want) == 0 {
			want = nil
		}
		var got []string
		for _, term := range p.Vocabulary() {
			if p.Postings(term).Contains(uint32(id)) {
				got = append(got, term)
			}
		}
		assert.Equal(t, want, got, "document %d", id)
	}
}

func TestBuild_rejectsOutOfRangeID(t *testing.T) {
	_, err := Build(map[int64]map[string]int{-1: {"chat": 1}})
	assert.Error(t, err)
}

func TestPostings_AddReplacesAndRemove(t *testing.T) {
	p := NewPostings()
	require.NoError(t, p.Add(1, []string{"chat", "chien", "chat"}))
	require.NoError(t, p.Add(2, []string{"chien"}))
	assert.Equal(t, []string{"chat", "chien"}, p.Terms(1))

	require.NoError(t, p.Add(1, []string{"souris"}))
	assert.True(t, p.Postings("chat").IsEmpty())
	assert.Equal(t, []uint32{2}, p.Postings("chien").ToArray())
	assert.Equal(t, []uint32{1}, p.Postings("souris").ToArray())

	p.Remove(1)
	assert.True(t, p.Postings("souris").IsEmpty())
	assert.NotContains(t, p.Vocabulary(), "souris")
	assert.Equal(t, 1, p.TermCount())
	assert.Equal(t, []uint32{2}, p.Postings("chien").ToArray())
	assert.Equal(t, 1, p.Documents())

	p.Remove(42)
	assert.Equal(t, 1, p.Documents())
}

func TestIndex_UpdateReplace(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Update(func(w Writer) error {
		return w.Add(1, []string{"chat"})
	}))

	next, err := Build(map[int64]map[string]int{7: {"chien": 1}})
	require.NoError(t, err)
	require.NoError(t, idx.Update(func(w Writer) error {
		w.Replace(next)
		return nil
	}))

	require.NoError(t, idx.View(func(r Reader) error {
		assert.True(t, r.Postings("chat").IsEmpty())
		assert.Equal(t, []uint32{7}, r.Postings("chien").ToArray())
		assert.Equal(t, 1, r.Documents())
		return nil
	}))
}

func TestIndex_concurrentReaders(t *testing.T) {
	idx := New()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			_ = idx.Update(func(w Writer) error {
				return w.Add(id, []string{"chat", "chien"})
			})
		}(int64(i + 1))
		go func() {
			defer wg.Done()
			_ = idx.View(func(r Reader) error {
				// A document is either fully present or absent.
				chat := r.Postings("chat").GetCardinality()
				chien := r.Postings("chien").GetCardinality()
				assert.Equal(t, chat, chien)
				return nil
			})
		}()
	}
	wg.Wait()
	_ = idx.View(func(r Reader) error {
		assert.Equal(t, 8, r.Documents())
		return nil
	})
}
