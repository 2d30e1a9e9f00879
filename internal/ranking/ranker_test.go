package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource struct {
	counts map[int64]map[string]int
	calls  int
	err    error
}

func (m *mapSource) TermCounts(_ context.Context, docIDs []int64, terms []string) (map[int64]map[string]int, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int64]map[string]int)
	for _, id := range docIDs {
		for _, t := range terms {
			if n, ok := m.counts[id][t]; ok {
				if out[id] == nil {
					out[id] = map[string]int{}
				}
				out[id][t] = n
			}
		}
	}
	return out, nil
}

func TestRank(t *testing.T) {
	src := &mapSource{counts: map[int64]map[string]int{
		1: {"chat": 2, "chien": 1},
		2: {"chien": 5},
		3: {"chat": 1},
		4: {"chat": 3},
	}}
	got, err := Rank(context.Background(), src, []int64{4, 3, 2, 1}, []string{"chat", "chien"})
	require.NoError(t, err)
	assert.Equal(t, []Scored{
		{DocumentID: 2, Score: 5},
		{DocumentID: 1, Score: 3},
		{DocumentID: 4, Score: 3},
		{DocumentID: 3, Score: 1},
	}, got)
}

func TestRank_distinctTerms(t *testing.T) {
	src := &mapSource{counts: map[int64]map[string]int{1: {"chat": 2}}}
	got, err := Rank(context.Background(), src, []int64{1}, []string{"chat", "chat"})
	require.NoError(t, err)
	assert.Equal(t, []Scored{{DocumentID: 1, Score: 2}}, got)
}

func TestRank_absentTermScoresZero(t *testing.T) {
	src := &mapSource{counts: map[int64]map[string]int{1: {"chat": 1}}}
	got, err := Rank(context.Background(), src, []int64{2, 1}, []string{"chat"})
	require.NoError(t, err)
	assert.Equal(t, []Scored{{DocumentID: 1, Score: 1}, {DocumentID: 2, Score: 0}}, got)
}

func TestRank_stable(t *testing.T) {
	src := &mapSource{counts: map[int64]map[string]int{
		1: {"a": 1}, 2: {"a": 1}, 3: {"a": 1}, 4: {"a": 2}, 5: {"a": 1},
	}}
	ids := []int64{5, 3, 1, 4, 2}
	first, err := Rank(context.Background(), src, ids, []string{"a"})
	require.NoError(t, err)
	for range 20 {
		again, err := Rank(context.Background(), src, ids, []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, int64(4), first[0].DocumentID)
	assert.Equal(t, int64(1), first[1].DocumentID)
}

func TestRank_empty(t *testing.T) {
	src := &mapSource{}
	got, err := Rank(context.Background(), src, nil, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, src.calls)
}

func TestRank_sourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Rank(context.Background(), &mapSource{err: boom}, []int64{1}, []string{"a"})
	assert.ErrorIs(t, err, boom)
}
