// Package store persists generated cells.
//
// A [Record] wraps a [cellio.Document] with an ID, a creation time and
// summary statistics. Two implementations are provided:
//   - [MemoryStore]: in-process, for tests and single-instance servers
//   - [MongoStore]: MongoDB-backed, for shared deployments
//
// IDs are random UUIDs assigned by [NewRecord].
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/strongarm/pkg/cellio"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("cell not found")

// DefaultListLimit caps List when the caller passes zero.
const DefaultListLimit = 50

// Record is one stored cell.
type Record struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	ParamsHash string           `json:"params_hash"`
	CreatedAt  time.Time        `json:"created_at"`
	Stats      cellio.Stats     `json:"stats"`
	Document   *cellio.Document `json:"document,omitempty"`
}

// NewRecord wraps doc in a record with a fresh ID.
func NewRecord(doc *cellio.Document) *Record {
	return &Record{
		ID:         uuid.NewString(),
		Name:       doc.Name,
		ParamsHash: doc.Params.Hash(),
		CreatedAt:  time.Now().UTC(),
		Stats:      doc.Stats(),
		Document:   doc,
	}
}

// Summary returns a copy of r without its document.
func (r *Record) Summary() *Record {
	s := *r
	s.Document = nil
	return &s
}

// Store persists records.
type Store interface {
	// Save inserts or replaces a record.
	Save(ctx context.Context, rec *Record) error
	// Get returns the record with its document, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	// List returns up to limit summaries, newest first.
	List(ctx context.Context, limit int) ([]*Record, error)
	// Delete removes a record, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	Close() error
}

// ValidateID rejects IDs that are not UUIDs.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid cell id %q", id)
	}
	return nil
}

func notFound(id string) error {
	return apperrors.Wrap(apperrors.ErrCodeNotFound, ErrNotFound, "cell %s", id)
}

func checkRecord(rec *Record) error {
	if rec == nil || rec.Document == nil {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "record has no document")
	}
	return ValidateID(rec.ID)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
