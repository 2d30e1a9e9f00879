package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/docufind/internal/extract"
	"github.com/hyperjump/docufind/internal/index"
	"github.com/hyperjump/docufind/internal/indexer"
	"github.com/hyperjump/docufind/internal/metrics"
	"github.com/hyperjump/docufind/internal/models"
	"github.com/hyperjump/docufind/internal/normalize"
	"github.com/hyperjump/docufind/internal/spelling"
	"github.com/hyperjump/docufind/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine  *Engine
	indexer *indexer.Indexer
	metrics *metrics.Metrics
	docs    map[string]int64
	docsDir string
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	docsDir := filepath.Join(dir, "documents")
	require.NoError(t, os.MkdirAll(docsDir, 0755))

	inv := index.New()
	n := normalize.New(normalize.NewStopwordSet(normalize.DefaultStopwords...))
	suggester := spelling.NewSuggester(store)
	m := metrics.New()
	idx := indexer.NewIndexer(store, inv, n, extract.NewExtractor(), docsDir,
		indexer.WithOnChange(suggester.Invalidate))
	engine := NewEngine(store, inv, n, WithSuggester(suggester), WithMetrics(m), WithSnippetLength(50))

	f := &fixture{engine: engine, indexer: idx, metrics: m, docs: map[string]int64{}, docsDir: docsDir}
	for name, content := range files {
		p := filepath.Join(docsDir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0600))
		doc, err := idx.IngestFile(context.Background(), p)
		require.NoError(t, err)
		f.docs[name] = doc.ID
	}
	return f
}

func (f *fixture) search(t *testing.T, q string) *models.SearchResponse {
	t.Helper()
	resp, err := f.engine.Search(context.Background(), &models.SearchQuery{Query: q})
	require.NoError(t, err)
	return resp
}

func filenames(resp *models.SearchResponse) []string {
	out := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, r.Filename)
	}
	return out
}

func TestSearch_singleDocument(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "chat chien chat"})

	resp := f.search(t, "chat")
	assert.Equal(t, []string{"a.txt"}, filenames(resp))
	assert.Equal(t, 2, resp.Results[0].Score)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, []string{"chat"}, resp.Terms)

	resp = f.search(t, "chat and souris")
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.Total)
	assert.False(t, resp.Malformed)
}

func TestSearch_booleanOperators(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt": "chat",
		"b.txt": "chien",
	})

	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, filenames(f.search(t, "chat or chien")))
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, filenames(f.search(t, "chat ou chien")))
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, filenames(f.search(t, "chat chien")))
	assert.Equal(t, []string{"a.txt"}, filenames(f.search(t, "chat not chien")))
	assert.Empty(t, filenames(f.search(t, "chat et chien")))
	assert.Equal(t, []string{"b.txt"}, filenames(f.search(t, "CHIEN")))
}

func TestSearch_malformed(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "chat chien"})

	for _, q := range []string{"chat and", "and chat chien", "chat and chien or souris", "   "} {
		resp := f.search(t, q)
		assert.True(t, resp.Malformed, q)
		assert.NotEmpty(t, resp.Message, q)
		assert.Empty(t, resp.Results, q)
	}
	assert.Equal(t, float64(4), testutil.ToFloat64(f.metrics.SearchQueriesTotal.WithLabelValues("malformed")))
}

func TestSearch_rankingByCountThenID(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt": "pomme",
		"b.txt": "pomme pomme poire",
		"c.txt": "pomme",
	})

	resp := f.search(t, "pomme poire")
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "b.txt", resp.Results[0].Filename)
	assert.Equal(t, 3, resp.Results[0].Score)
	// a and c tie; the lower id comes first.
	first, second := resp.Results[1], resp.Results[2]
	assert.Equal(t, 1, first.Score)
	assert.Equal(t, 1, second.Score)
	assert.Less(t, first.DocumentID, second.DocumentID)

	again := f.search(t, "pomme poire")
	assert.Equal(t, filenames(resp), filenames(again))
}

func TestSearch_notRanksByKeptTermOnly(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt": "soleil soleil",
		"b.txt": "soleil pluie pluie pluie",
	})
	resp := f.search(t, "soleil not pluie")
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a.txt", resp.Results[0].Filename)
	assert.Equal(t, 2, resp.Results[0].Score)
}

func TestSearch_pagination(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt": "mer mer mer",
		"b.txt": "mer mer",
		"c.txt": "mer",
	})
	resp, err := f.engine.Search(context.Background(), &models.SearchQuery{Query: "mer", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, []string{"b.txt", "c.txt"}, filenames(resp))
	assert.Equal(t, 2, resp.Results[0].Rank)

	resp, err = f.engine.Search(context.Background(), &models.SearchQuery{Query: "mer", Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Empty(t, resp.Results)
}

func TestSearch_snippet(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt": "Voir https://exemple.fr   L'Été à la Plage\n\nrésumé complet du séjour",
	})
	resp := f.search(t, "plage")
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "voir l'ete a la plage resume", resp.Results[0].Snippet)
}

func TestSearch_didYouMean(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "maison jardin"})

	resp := f.search(t, "maizon")
	assert.Empty(t, resp.Results)
	assert.Equal(t, []string{"maison"}, resp.Suggestions)

	resp = f.search(t, "maizon and jardim")
	assert.Equal(t, []string{"maison and jardin"}, resp.Suggestions)

	resp = f.search(t, "xylophone")
	assert.Empty(t, resp.Suggestions)
}

func TestSearch_seesIngestAndDelete(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "orange", "b.txt": "orange citron"})

	assert.Len(t, f.search(t, "orange").Results, 2)
	_, err := f.indexer.DeleteDocument(context.Background(), f.docs["b.txt"])
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, filenames(f.search(t, "orange")))
	assert.Empty(t, f.search(t, "citron").Results)

	st, err := f.engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Documents)
	assert.Equal(t, int64(1), st.UniqueTerms)
}

func TestSearch_duringReindexSeesOldOrNewCorpus(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "orange", "b.txt": "orange citron"})
	ctx := context.Background()
	require.NoError(t, os.Remove(filepath.Join(f.docsDir, "b.txt")))
	for i := range 20 {
		name := filepath.Join(f.docsDir, "c"+string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(name, []byte("orange pamplemousse"), 0600))
	}
	before := []string{"a.txt", "b.txt"}
	after := []string{"a.txt"}
	for i := range 20 {
		after = append(after, "c"+string(rune('a'+i))+".txt")
	}

	var (
		stop     atomic.Bool
		wg       sync.WaitGroup
		searches atomic.Int64
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				resp, err := f.engine.Search(ctx, &models.SearchQuery{Query: "orange", Limit: 100})
				if !assert.NoError(t, err) {
					return
				}
				got := filenames(resp)
				slices.Sort(got)
				if !slices.Equal(got, before) && !slices.Equal(got, after) {
					t.Errorf("search saw a partial corpus: %v", got)
					return
				}
				if resp.Total != len(got) {
					t.Errorf("total = %d for %d results", resp.Total, len(got))
					return
				}
				searches.Add(1)
			}
		}()
	}
	for range 3 {
		_, err := f.indexer.Reindex(ctx, nil)
		assert.NoError(t, err)
	}
	stop.Store(true)
	wg.Wait()

	assert.Positive(t, searches.Load())
	resp, err := f.engine.Search(ctx, &models.SearchQuery{Query: "orange", Limit: 100})
	require.NoError(t, err)
	got := filenames(resp)
	slices.Sort(got)
	assert.Equal(t, after, got)
}

func TestSuggest(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "bibliothèque livre"})

	s, ok, err := f.engine.Suggest(context.Background(), "Bibliotheque")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bibliothèque", s.Term)
	assert.Equal(t, "bibliotheque", s.Word)
	assert.Equal(t, 1, s.Distance)

	empty := newFixture(t, nil)
	_, ok, err = empty.engine.Suggest(context.Background(), "mot")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocumentTerms(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "vent vent vent pluie pluie neige"})

	dt, err := f.engine.DocumentTerms(context.Background(), f.docs["a.txt"], 2)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", dt.Filename)
	assert.Equal(t, []models.TermCount{{Term: "vent", Count: 3}, {Term: "pluie", Count: 2}}, dt.Terms)

	_, err = f.engine.DocumentTerms(context.Background(), 999, 10)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestStats(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt": "vent vent pluie",
		"b.txt": "vent",
	})
	st, err := f.engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Documents)
	assert.Equal(t, int64(3), st.TermRows)
	assert.Equal(t, int64(2), st.UniqueTerms)
	assert.Equal(t, int64(4), st.TotalOccurrences)
	require.NotEmpty(t, st.TopTerms)
	assert.Equal(t, models.TermCount{Term: "vent", Count: 3}, st.TopTerms[0])
	require.Len(t, st.PerDocument, 2)
	assert.Equal(t, "a.txt", st.PerDocument[0].Filename)
	assert.Equal(t, 3, st.PerDocument[0].TotalTerms)
	assert.Equal(t, 2, st.PerDocument[0].UniqueTerms)
	assert.Equal(t, "vent", st.PerDocument[0].TopTerms[0].Term)
}
