// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/docufind/internal/models"
)

// maxBatchParams bounds the number of bound parameters per IN (...) list.
const maxBatchParams = 500

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		filetype TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS term_frequencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL,
		term TEXT NOT NULL,
		count INTEGER NOT NULL CHECK (count >= 1),
		UNIQUE (document_id, term),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_term_frequencies_term ON term_frequencies(term);
	`
	_, err := db.Exec(schema)
	return err
}

// PutDocument inserts doc, or replaces the document with the same filename, together
// with its term counts. The id of an existing filename is kept. doc.ID is set on return.
func (s *SQLiteStorage) PutDocument(ctx context.Context, doc *models.Document, terms map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO documents (filename, filetype, content) VALUES (?, ?, ?)
		 ON CONFLICT(filename) DO UPDATE SET filetype = excluded.filetype, content = excluded.content
		 RETURNING id`,
		doc.Filename, string(doc.Type), doc.Content,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM term_frequencies WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to clear term frequencies: %w", err)
	}
	if err := insertTerms(ctx, tx, doc.ID, terms); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTerms(ctx context.Context, tx *sql.Tx, docID int64, terms map[string]int) error {
	if len(terms) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO term_frequencies (document_id, term, count) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for term, n := range terms {
		if n < 1 || term == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, docID, term, n); err != nil {
			return fmt.Errorf("failed to insert term %q: %w", term, err)
		}
	}
	return nil
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	return s.getDocument(ctx, `SELECT id, filename, filetype, content FROM documents WHERE id = ?`, id)
}

// GetDocumentByFilename returns a document by its unique filename.
func (s *SQLiteStorage) GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error) {
	return s.getDocument(ctx, `SELECT id, filename, filetype, content FROM documents WHERE filename = ?`, filename)
}

func (s *SQLiteStorage) getDocument(ctx context.Context, query string, arg any) (*models.Document, error) {
	var doc models.Document
	var filetype string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&doc.ID, &doc.Filename, &filetype, &doc.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, arg)
	}
	if err != nil {
		return nil, err
	}
	doc.Type = models.DocType(filetype)
	return &doc, nil
}

// GetDocuments returns the documents with the given ids. Unknown ids are skipped.
func (s *SQLiteStorage) GetDocuments(ctx context.Context, ids []int64) (map[int64]*models.Document, error) {
	out := make(map[int64]*models.Document, len(ids))
	for _, batch := range batches(ids, maxBatchParams) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, filename, filetype, content FROM documents WHERE id IN (`+placeholders(len(batch))+`)`,
			args(batch)...,
		)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var doc models.Document
			var filetype string
			if err := rows.Scan(&doc.ID, &doc.Filename, &filetype, &doc.Content); err != nil {
				rows.Close()
				return nil, err
			}
			doc.Type = models.DocType(filetype)
			out[doc.ID] = &doc
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteDocument removes a document and its term frequencies in one transaction
// and returns the removed document.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id int64) (*models.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var doc models.Document
	var filetype string
	err = tx.QueryRowContext(ctx,
		`SELECT id, filename, filetype FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Filename, &filetype)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	doc.Type = models.DocType(filetype)

	if _, err := tx.ExecContext(ctx, `DELETE FROM term_frequencies WHERE document_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete term frequencies: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns documents ordered by filename, without their content.
// A non-positive limit returns every document.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, filetype FROM documents ORDER BY filename LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var filetype string
		if err := rows.Scan(&doc.ID, &doc.Filename, &filetype); err != nil {
			return nil, err
		}
		doc.Type = models.DocType(filetype)
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// ReplaceAll discards every document and term frequency and writes docs instead, in a
// single transaction: either the whole batch is visible afterwards or the prior state is.
// Document ids are assigned on insert and set on each docs[i].Document.
func (s *SQLiteStorage) ReplaceAll(ctx context.Context, docs []*models.IndexedDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM term_frequencies`); err != nil {
		return fmt.Errorf("failed to clear term frequencies: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (filename, filetype, content) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := stmt.ExecContext(ctx, d.Document.Filename, string(d.Document.Type), d.Document.Content)
		if err != nil {
			return fmt.Errorf("failed to insert document %s: %w", d.Document.Filename, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		d.Document.ID = id
		if err := insertTerms(ctx, tx, id, d.Terms); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TermFrequencies returns the term counts of one document.
func (s *SQLiteStorage) TermFrequencies(ctx context.Context, docID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT term, count FROM term_frequencies WHERE document_id = ?`, docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var term string
		var n int
		if err := rows.Scan(&term, &n); err != nil {
			return nil, err
		}
		out[term] = n
	}
	return out, rows.Err()
}

// AllTermFrequencies returns every term count keyed by document id.
// It fails with ErrIntegrity if any row references a missing document.
func (s *SQLiteStorage) AllTermFrequencies(ctx context.Context) (map[int64]map[string]int, error) {
	if err := s.CheckIntegrity(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT document_id, term, count FROM term_frequencies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]map[string]int)
	for rows.Next() {
		var id int64
		var term string
		var n int
		if err := rows.Scan(&id, &term, &n); err != nil {
			return nil, err
		}
		if out[id] == nil {
			out[id] = make(map[string]int)
		}
		out[id][term] = n
	}
	return out, rows.Err()
}

// TermCounts returns the stored counts of terms within docIDs.
// Pairs with no row are absent from the result.
func (s *SQLiteStorage) TermCounts(ctx context.Context, docIDs []int64, terms []string) (map[int64]map[string]int, error) {
	out := make(map[int64]map[string]int)
	if len(docIDs) == 0 || len(terms) == 0 {
		return out, nil
	}
	termArgs := args(terms)
	for _, batch := range batches(docIDs, maxBatchParams) {
		query := `SELECT document_id, term, count FROM term_frequencies
			WHERE term IN (` + placeholders(len(terms)) + `) AND document_id IN (` + placeholders(len(batch)) + `)`
		rows, err := s.db.QueryContext(ctx, query, append(append([]any{}, termArgs...), args(batch)...)...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id int64
			var term string
			var n int
			if err := rows.Scan(&id, &term, &n); err != nil {
				rows.Close()
				return nil, err
			}
			if out[id] == nil {
				out[id] = make(map[string]int)
			}
			out[id][term] = n
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Vocabulary returns distinct terms ordered by total occurrences, most frequent first.
// A non-positive limit returns all terms.
func (s *SQLiteStorage) Vocabulary(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT term FROM term_frequencies GROUP BY term ORDER BY SUM(count) DESC, term LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Stats returns document, row, unique-term and occurrence counts computed from current rows.
func (s *SQLiteStorage) Stats(ctx context.Context) (*models.CorpusStats, error) {
	var st models.CorpusStats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM documents),
			COUNT(*),
			COUNT(DISTINCT term),
			COALESCE(SUM(count), 0)
		 FROM term_frequencies`,
	).Scan(&st.Documents, &st.TermRows, &st.UniqueTerms, &st.TotalOccurrences)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return &st, nil
}

// TopTerms returns the most frequent terms across the corpus.
func (s *SQLiteStorage) TopTerms(ctx context.Context, limit int) ([]models.TermCount, error) {
	return s.termCounts(ctx,
		`SELECT term, SUM(count) AS total FROM term_frequencies
		 GROUP BY term ORDER BY total DESC, term LIMIT ?`, limit)
}

// TopTermsForDocument returns the most frequent terms of one document.
func (s *SQLiteStorage) TopTermsForDocument(ctx context.Context, docID int64, limit int) ([]models.TermCount, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE id = ?)`, docID,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, docID)
	}
	return s.termCounts(ctx,
		`SELECT term, count FROM term_frequencies WHERE document_id = ?
		 ORDER BY count DESC, term LIMIT ?`, docID, limit)
}

func (s *SQLiteStorage) termCounts(ctx context.Context, query string, params ...any) ([]models.TermCount, error) {
	if n := len(params); n > 0 {
		if limit, ok := params[n-1].(int); ok && limit <= 0 {
			params[n-1] = -1
		}
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TermCount
	for rows.Next() {
		var tc models.TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// DocumentStats returns total and unique term counts per document, ordered by filename.
func (s *SQLiteStorage) DocumentStats(ctx context.Context) ([]*models.DocumentStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.filename, COALESCE(SUM(tf.count), 0), COUNT(tf.id)
		 FROM documents d LEFT JOIN term_frequencies tf ON tf.document_id = d.id
		 GROUP BY d.id ORDER BY d.filename`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.DocumentStats
	for rows.Next() {
		var ds models.DocumentStats
		if err := rows.Scan(&ds.DocumentID, &ds.Filename, &ds.TotalTerms, &ds.UniqueTerms); err != nil {
			return nil, err
		}
		out = append(out, &ds)
	}
	return out, rows.Err()
}

// CheckIntegrity returns ErrIntegrity if any term frequency row references a missing document.
func (s *SQLiteStorage) CheckIntegrity(ctx context.Context) error {
	var orphans int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM term_frequencies tf
		 LEFT JOIN documents d ON d.id = tf.document_id
		 WHERE d.id IS NULL`,
	).Scan(&orphans)
	if err != nil {
		return fmt.Errorf("failed to check integrity: %w", err)
	}
	if orphans > 0 {
		return fmt.Errorf("%w: %d term rows reference missing documents", ErrIntegrity, orphans)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func args[T any](vals []T) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func batches[T any](vals []T, size int) [][]T {
	var out [][]T
	for size < len(vals) {
		vals, out = vals[size:], append(out, vals[:size])
	}
	if len(vals) > 0 {
		out = append(out, vals)
	}
	return out
}
