// Package indexer writes documents into the store and the inverted index, keeping both in step.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/docufind/internal/extract"
	"github.com/hyperjump/docufind/internal/fileid"
	"github.com/hyperjump/docufind/internal/index"
	"github.com/hyperjump/docufind/internal/metrics"
	"github.com/hyperjump/docufind/internal/models"
	"github.com/hyperjump/docufind/internal/normalize"
	"github.com/hyperjump/docufind/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnsupportedType is returned for files whose extension is not indexed.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrInvalidName is returned for upload names that reduce to nothing usable.
	ErrInvalidName = errors.New("invalid document name")
)

// DefaultExtensions are the file extensions indexed when none are configured.
var DefaultExtensions = []string{".txt", ".docx", ".pdf", ".html", ".htm"}

// Progress is called during a re-index after each extracted file.
type Progress func(done, total int)

// ReindexReport summarizes a completed re-index run.
type ReindexReport struct {
	RunID    string        `json:"run_id"`
	Indexed  int           `json:"indexed"`
	Empty    []string      `json:"empty"`
	Failed   []string      `json:"failed"`
	Skipped  []string      `json:"skipped"`
	Duration time.Duration `json:"duration_ns"`
}

// Indexer ingests, deletes and re-indexes documents.
// Writers are serialized; searches only wait for the short index swap.
type Indexer struct {
	store      storage.Storage
	index      *index.Index
	normalizer *normalize.Normalizer
	extractor  extract.TextExtractor
	docsDir    string
	extensions map[string]struct{}
	workers    int
	metrics    *metrics.Metrics
	logger     *zap.Logger
	onChange   []func()

	mu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithMetrics records ingestion, deletion and re-index metrics.
func WithMetrics(m *metrics.Metrics) IndexerOption {
	return func(idx *Indexer) { idx.metrics = m }
}

// WithWorkers sets how many files a re-index extracts concurrently.
func WithWorkers(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// WithExtensions restricts indexing to the given extensions (leading dot optional).
func WithExtensions(exts []string) IndexerOption {
	return func(idx *Indexer) {
		if len(exts) > 0 {
			idx.extensions = extensionSet(exts)
		}
	}
}

// WithOnChange registers fn to run after every change to the indexed corpus.
func WithOnChange(fn func()) IndexerOption {
	return func(idx *Indexer) {
		if fn != nil {
			idx.onChange = append(idx.onChange, fn)
		}
	}
}

// NewIndexer creates an indexer over the documents directory docsDir.
func NewIndexer(
	store storage.Storage,
	inv *index.Index,
	normalizer *normalize.Normalizer,
	extractor extract.TextExtractor,
	docsDir string,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		store:      store,
		index:      inv,
		normalizer: normalizer,
		extractor:  extractor,
		docsDir:    docsDir,
		extensions: extensionSet(DefaultExtensions),
		workers:    4,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// DocumentsDir returns the directory documents are read from.
func (idx *Indexer) DocumentsDir() string {
	return idx.docsDir
}

// Supports reports whether path has an indexed extension.
func (idx *Indexer) Supports(path string) bool {
	if _, ok := models.DocTypeFromPath(path); !ok {
		return false
	}
	_, ok := idx.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// LoadIndex rebuilds the inverted index from the stored term frequencies.
// A store integrity violation is returned as is and must stop the caller.
func (idx *Indexer) LoadIndex(ctx context.Context) error {
	rows, err := idx.store.AllTermFrequencies(ctx)
	if err != nil {
		return fmt.Errorf("load term frequencies: %w", err)
	}
	p, err := index.Build(rows)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	err = idx.index.Update(func(w index.Writer) error {
		w.Replace(p)
		idx.observe(w)
		return nil
	})
	if err != nil {
		return err
	}
	idx.logger.Info("index loaded", zap.Int("documents", len(rows)))
	idx.changed()
	return nil
}

// IngestFile extracts, normalizes and stores the file at path, which must lie in the
// documents directory. A file already ingested under the same name is replaced and keeps
// its id. Extraction failures are logged and the document is stored with empty content.
func (idx *Indexer) IngestFile(ctx context.Context, path string) (*models.Document, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.ingest(ctx, path)
}

func (idx *Indexer) ingest(ctx context.Context, path string) (*models.Document, error) {
	name, err := fileid.Name(idx.docsDir, path)
	if err != nil {
		return nil, err
	}
	if !idx.Supports(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}

	idx.logger.Debug("indexer ingesting file", zap.String("filename", name))
	doc, _ := idx.extract(ctx, path, name)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	freq := index.Frequencies(idx.normalizer.Normalize(doc.Content))

	err = idx.index.Update(func(w index.Writer) error {
		if err := idx.store.PutDocument(ctx, doc, freq); err != nil {
			return fmt.Errorf("store document: %w", err)
		}
		if err := w.Add(doc.ID, slices.Collect(maps.Keys(freq))); err != nil {
			return err
		}
		idx.observe(w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if idx.metrics != nil {
		idx.metrics.DocsIngestedTotal.Inc()
	}
	idx.logger.Info("document indexed",
		zap.Int64("id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.Int("unique_terms", len(freq)),
	)
	idx.changed()
	return doc, nil
}

// SaveUpload writes r into the documents directory under the sanitized base of name
// and ingests it. An existing file of that name is overwritten.
func (idx *Indexer) SaveUpload(ctx context.Context, name string, r io.Reader) (*models.Document, error) {
	base := fileid.Sanitize(name)
	if base == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !idx.Supports(base) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, base)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := os.MkdirAll(idx.docsDir, 0755); err != nil {
		return nil, fmt.Errorf("create documents directory: %w", err)
	}
	tmp, err := os.CreateTemp(idx.docsDir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	dest := filepath.Join(idx.docsDir, base)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("move upload: %w", err)
	}
	return idx.ingest(ctx, dest)
}

// DeleteDocument removes a document and its term frequencies from the store and the
// index, then removes its file from the documents directory. A file that cannot be
// removed is logged; the document stays deleted.
func (idx *Indexer) DeleteDocument(ctx context.Context, id int64) (*models.Document, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	doc, err := idx.delete(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := fileid.Resolve(idx.docsDir, doc.Filename)
	if err == nil {
		err = os.Remove(p)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		idx.logger.Warn("failed to remove document file",
			zap.String("filename", doc.Filename), zap.Error(err))
	}
	return doc, nil
}

// ForgetFile removes the document stored for path without touching the file system.
// It is used when the file is already gone. Unknown files are ignored.
func (idx *Indexer) ForgetFile(ctx context.Context, path string) error {
	name, err := fileid.Name(idx.docsDir, path)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	doc, err := idx.store.GetDocumentByFilename(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = idx.delete(ctx, doc.ID)
	return err
}

func (idx *Indexer) delete(ctx context.Context, id int64) (*models.Document, error) {
	var doc *models.Document
	err := idx.index.Update(func(w index.Writer) error {
		var err error
		doc, err = idx.store.DeleteDocument(ctx, id)
		if err != nil {
			return err
		}
		w.Remove(id)
		idx.observe(w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if idx.metrics != nil {
		idx.metrics.DocsDeletedTotal.Inc()
	}
	idx.logger.Info("document deleted", zap.Int64("id", id), zap.String("filename", doc.Filename))
	idx.changed()
	return doc, nil
}

// Reindex rebuilds the whole corpus from the documents directory. Files are extracted
// into a staging set first; the store and the index are then swapped in one step, so a
// failed or cancelled run leaves the previous corpus searchable and unchanged.
// Document ids are reassigned.
func (idx *Indexer) Reindex(ctx context.Context, progress Progress) (*ReindexReport, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	start := time.Now()
	report := &ReindexReport{RunID: uuid.New().String()}
	log := idx.logger.With(zap.String("run_id", report.RunID))
	log.Info("reindex started", zap.String("dir", idx.docsDir))

	docs, err := idx.reindex(ctx, report, progress)
	if err != nil {
		status := "error"
		if ctx.Err() != nil {
			status = "cancelled"
		}
		if idx.metrics != nil {
			idx.metrics.ReindexTotal.WithLabelValues(status).Inc()
		}
		log.Error("reindex aborted, previous corpus kept", zap.String("status", status), zap.Error(err))
		return nil, err
	}

	report.Indexed = len(docs)
	report.Duration = time.Since(start)
	if idx.metrics != nil {
		idx.metrics.ReindexTotal.WithLabelValues("ok").Inc()
		idx.metrics.ReindexDuration.Observe(report.Duration.Seconds())
	}
	log.Info("reindex finished",
		zap.Int("indexed", report.Indexed),
		zap.Int("empty", len(report.Empty)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Duration("duration", report.Duration),
	)
	idx.changed()
	return report, nil
}

func (idx *Indexer) reindex(ctx context.Context, report *ReindexReport, progress Progress) ([]*models.IndexedDocument, error) {
	paths, err := idx.scan(report)
	if err != nil {
		return nil, err
	}

	staged := make([]*models.IndexedDocument, len(paths))
	failed := make([]bool, len(paths))
	var (
		doneMu sync.Mutex
		done   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name, err := fileid.Name(idx.docsDir, p)
			if err != nil {
				return err
			}
			doc, ok := idx.extract(gctx, p, name)
			staged[i] = &models.IndexedDocument{
				Document: doc,
				Terms:    index.Frequencies(idx.normalizer.Normalize(doc.Content)),
			}
			failed[i] = !ok
			if progress != nil {
				doneMu.Lock()
				done++
				progress(done, len(paths))
				doneMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, d := range staged {
		if failed[i] {
			report.Failed = append(report.Failed, d.Document.Filename)
		} else if len(d.Terms) == 0 {
			report.Empty = append(report.Empty, d.Document.Filename)
		}
	}
	slices.SortFunc(staged, func(a, b *models.IndexedDocument) int {
		return strings.Compare(a.Document.Filename, b.Document.Filename)
	})
	slices.Sort(report.Failed)
	slices.Sort(report.Empty)

	err = idx.index.Update(func(w index.Writer) error {
		if err := idx.store.ReplaceAll(ctx, staged); err != nil {
			return fmt.Errorf("replace corpus: %w", err)
		}
		rows := make(map[int64]map[string]int, len(staged))
		for _, d := range staged {
			rows[d.Document.ID] = d.Terms
		}
		p, err := index.Build(rows)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		w.Replace(p)
		idx.observe(w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return staged, nil
}

// scan lists the indexable files under the documents directory in lexical order.
// Unsupported files are recorded as skipped. Hidden files and directories are ignored.
func (idx *Indexer) scan(report *ReindexReport) ([]string, error) {
	info, err := os.Stat(idx.docsDir)
	if err != nil {
		return nil, fmt.Errorf("stat documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", idx.docsDir)
	}
	var paths []string
	err = filepath.WalkDir(idx.docsDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p != idx.docsDir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			// Resolve symlinks so we only index regular files
			fi, statErr := os.Stat(p)
			if statErr != nil || !fi.Mode().IsRegular() {
				return nil
			}
		}
		if !idx.Supports(p) {
			if name, nameErr := fileid.Name(idx.docsDir, p); nameErr == nil {
				report.Skipped = append(report.Skipped, name)
			}
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk documents directory: %w", err)
	}
	return paths, nil
}

// extract returns the document for the file at path. On extraction failure the content
// is empty and ok is false.
func (idx *Indexer) extract(ctx context.Context, path, name string) (doc *models.Document, ok bool) {
	docType, _ := models.DocTypeFromPath(path)
	doc = &models.Document{Filename: name, Type: docType}
	text, err := idx.extractText(ctx, path)
	if err != nil {
		if ctx.Err() == nil {
			idx.logger.Warn("text extraction failed, indexing as empty",
				zap.String("filename", name), zap.Error(err))
			if idx.metrics != nil {
				idx.metrics.ExtractionFailures.WithLabelValues(string(docType)).Inc()
			}
		}
		return doc, false
	}
	doc.Content = text
	return doc, true
}

// extractText runs the extractor, turning a panic in a third-party parser into an error
// so one malformed file cannot take down a re-index or the watcher.
func (idx *Indexer) extractText(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extract %s: malformed file: %v", filepath.Base(path), r)
		}
	}()
	return idx.extractor.Extract(ctx, path)
}

func (idx *Indexer) observe(r index.Reader) {
	if idx.metrics == nil {
		return
	}
	idx.metrics.IndexedDocuments.Set(float64(r.Documents()))
	idx.metrics.IndexedTerms.Set(float64(r.TermCount()))
}

func (idx *Indexer) changed() {
	for _, fn := range idx.onChange {
		fn()
	}
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}
