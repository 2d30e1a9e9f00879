// Package storage defines the persistence interface for documents and their term frequencies.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/docufind/internal/models"
)

var (
	// ErrNotFound is returned when a document id or filename does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrIntegrity is returned when a term frequency row references a missing document.
	// It means the derived state is corrupted and the operation must not continue.
	ErrIntegrity = errors.New("store integrity violation")
)

// Storage defines document and term frequency persistence operations.
type Storage interface {
	// Document operations
	PutDocument(ctx context.Context, doc *models.Document, terms map[string]int) error
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error)
	GetDocuments(ctx context.Context, ids []int64) (map[int64]*models.Document, error)
	DeleteDocument(ctx context.Context, id int64) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Re-index
	ReplaceAll(ctx context.Context, docs []*models.IndexedDocument) error

	// Term frequency reads
	TermFrequencies(ctx context.Context, docID int64) (map[string]int, error)
	AllTermFrequencies(ctx context.Context) (map[int64]map[string]int, error)
	TermCounts(ctx context.Context, docIDs []int64, terms []string) (map[int64]map[string]int, error)
	Vocabulary(ctx context.Context, limit int) ([]string, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*models.CorpusStats, error)
	TopTerms(ctx context.Context, limit int) ([]models.TermCount, error)
	TopTermsForDocument(ctx context.Context, docID int64, limit int) ([]models.TermCount, error)
	DocumentStats(ctx context.Context) ([]*models.DocumentStats, error)
	CheckIntegrity(ctx context.Context) error

	Close() error
}
