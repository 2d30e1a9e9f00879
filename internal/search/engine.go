// Package search answers boolean keyword queries over the indexed corpus.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/docufind/internal/index"
	"github.com/hyperjump/docufind/internal/metrics"
	"github.com/hyperjump/docufind/internal/models"
	"github.com/hyperjump/docufind/internal/normalize"
	"github.com/hyperjump/docufind/internal/query"
	"github.com/hyperjump/docufind/internal/ranking"
	"github.com/hyperjump/docufind/internal/spelling"
	"github.com/hyperjump/docufind/internal/storage"
	"github.com/hyperjump/docufind/pkg/utils"
	"go.uber.org/zap"
)

const (
	defaultLimit         = 20
	defaultMaxLimit      = 100
	defaultSnippetLength = 200
	statsTopTerms        = 20
	statsDocumentTerms   = 10
)

// Engine evaluates queries against the inverted index and ranks the matches from the store.
type Engine struct {
	store      storage.Storage
	index      *index.Index
	normalizer *normalize.Normalizer
	suggester  *spelling.Suggester
	metrics    *metrics.Metrics
	logger     *zap.Logger

	defaultLimit  int
	maxLimit      int
	snippetLength int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for query events.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records query metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSuggester enables "did you mean" suggestions and Suggest.
func WithSuggester(s *spelling.Suggester) Option {
	return func(e *Engine) { e.suggester = s }
}

// WithLimits sets the page size used when a query has none, and the largest page size.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(e *Engine) {
		if defaultLimit > 0 {
			e.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			e.maxLimit = maxLimit
		}
	}
}

// WithSnippetLength sets how many characters of content a result snippet is cut from.
func WithSnippetLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.snippetLength = n
		}
	}
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(store storage.Storage, inv *index.Index, normalizer *normalize.Normalizer, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		index:         inv,
		normalizer:    normalizer,
		logger:        zap.NewNop(),
		defaultLimit:  defaultLimit,
		maxLimit:      defaultMaxLimit,
		snippetLength: defaultSnippetLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search parses q, evaluates it and returns one page of ranked results.
// Queries that match no supported form come back Malformed with no results, not as an error.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	resp := &models.SearchResponse{Query: q.Query, Results: []*models.SearchResult{}}
	parsed := query.Parse(q.Query, e.normalizer.Canonical)
	if err := q.Validate(e.defaultLimit, e.maxLimit); err != nil || parsed.Kind == query.Invalid {
		resp.Malformed = true
		resp.Message = parsed.Reason()
		resp.QueryTime = time.Since(start).Milliseconds()
		e.observe("malformed", start, 0)
		e.logger.Debug("malformed query", zap.String("query", q.Query))
		return resp, nil
	}
	resp.Terms = parsed.DistinctTerms()

	err := e.index.View(func(r index.Reader) error {
		matches := query.Evaluate(parsed, r)
		ids := make([]int64, 0, matches.GetCardinality())
		it := matches.Iterator()
		for it.HasNext() {
			ids = append(ids, int64(it.Next()))
		}
		scored, err := ranking.Rank(ctx, e.store, ids, resp.Terms)
		if err != nil {
			return err
		}
		resp.Total = len(scored)
		page := paginate(scored, q.Offset, q.Limit)
		if len(page) == 0 {
			return nil
		}
		pageIDs := make([]int64, len(page))
		for i, s := range page {
			pageIDs[i] = s.DocumentID
		}
		docs, err := e.store.GetDocuments(ctx, pageIDs)
		if err != nil {
			return fmt.Errorf("load documents: %w", err)
		}
		for i, s := range page {
			doc, ok := docs[s.DocumentID]
			if !ok {
				return fmt.Errorf("%w: indexed document %d has no row", storage.ErrIntegrity, s.DocumentID)
			}
			resp.Results = append(resp.Results, &models.SearchResult{
				DocumentID: doc.ID,
				Filename:   doc.Filename,
				Type:       doc.Type,
				Score:      s.Score,
				Snippet:    utils.Snippet(doc.Content, e.snippetLength),
				Rank:       q.Offset + i + 1,
			})
		}
		return nil
	})
	if err != nil {
		e.observe("error", start, 0)
		return nil, fmt.Errorf("search failed: %w", err)
	}

	outcome := "hit"
	if resp.Total == 0 {
		outcome = "zero_result"
		resp.Suggestions = e.didYouMean(ctx, parsed)
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	e.observe(outcome, start, resp.Total)
	e.logger.Debug("search",
		zap.String("query", q.Query),
		zap.String("kind", parsed.Kind.String()),
		zap.Int("total", resp.Total),
		zap.Int64("ms", resp.QueryTime),
	)
	return resp, nil
}

// didYouMean rewrites the query with unknown terms replaced by close indexed terms.
func (e *Engine) didYouMean(ctx context.Context, q query.Query) []string {
	if e.suggester == nil {
		return nil
	}
	corrected, changed, err := e.suggester.Correct(ctx, q.Terms)
	if err != nil {
		e.logger.Warn("suggestion lookup failed", zap.Error(err))
		return nil
	}
	if !changed {
		return nil
	}
	switch q.Kind {
	case query.And, query.Or, query.Not:
		return []string{corrected[0] + " " + q.Kind.String() + " " + corrected[1]}
	default:
		return []string{strings.Join(corrected, " ")}
	}
}

// Suggest returns the indexed term closest to word. ok is false when nothing is indexed
// or no suggester is configured.
func (e *Engine) Suggest(ctx context.Context, word string) (spelling.Suggestion, bool, error) {
	if e.suggester == nil {
		return spelling.Suggestion{}, false, nil
	}
	s, ok, err := e.suggester.Suggest(ctx, e.normalizer.Canonical(word))
	if err != nil || !ok {
		return s, ok, err
	}
	s.Word = strings.ToLower(strings.TrimSpace(word))
	return s, true, nil
}

// Document returns a stored document with its content.
func (e *Engine) Document(ctx context.Context, id int64) (*models.Document, error) {
	return e.store.GetDocument(ctx, id)
}

// Documents lists stored documents without their content.
func (e *Engine) Documents(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	return e.store.ListDocuments(ctx, offset, limit)
}

// DocumentTerms returns the limit most frequent terms of a document.
// An unknown id yields storage.ErrNotFound.
func (e *Engine) DocumentTerms(ctx context.Context, id int64, limit int) (*models.DocumentTerms, error) {
	doc, err := e.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	terms, err := e.store.TopTermsForDocument(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if terms == nil {
		terms = []models.TermCount{}
	}
	return &models.DocumentTerms{DocumentID: doc.ID, Filename: doc.Filename, Terms: terms}, nil
}

// Stats returns corpus totals, the most frequent terms and per-document summaries.
func (e *Engine) Stats(ctx context.Context) (*models.CorpusStats, error) {
	st, err := e.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if st.TopTerms, err = e.store.TopTerms(ctx, statsTopTerms); err != nil {
		return nil, fmt.Errorf("failed to load top terms: %w", err)
	}
	if st.PerDocument, err = e.store.DocumentStats(ctx); err != nil {
		return nil, fmt.Errorf("failed to load document stats: %w", err)
	}
	for _, ds := range st.PerDocument {
		if ds.TopTerms, err = e.store.TopTermsForDocument(ctx, ds.DocumentID, statsDocumentTerms); err != nil {
			return nil, fmt.Errorf("failed to load terms of %s: %w", ds.Filename, err)
		}
	}
	return st, nil
}

func (e *Engine) observe(outcome string, start time.Time, total int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	e.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	if outcome == "hit" || outcome == "zero_result" {
		e.metrics.SearchResultsCount.Observe(float64(total))
	}
}

func paginate(scored []ranking.Scored, offset, limit int) []ranking.Scored {
	if offset >= len(scored) {
		return nil
	}
	end := min(offset+limit, len(scored))
	return scored[offset:end]
}
