package repository

import (
	"context"
	"errors"

	"doccatalog/internal/model"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateKey is returned by Insert when the id is already stored.
	ErrDuplicateKey = errors.New("document id already exists")
	// ErrStorageUnavailable wraps every failure of the underlying store
	// (open, schema, query, decode, quota).
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// DocumentRepository is the local catalog store. Persistence operations only,
// no business logic here.
type DocumentRepository interface {
	// Initialize prepares the store schema. It is idempotent and safe for concurrent use;
	// once it has succeeded, further calls return immediately.
	Initialize(ctx context.Context) error

	// ListAll returns every stored document in unspecified order.
	ListAll(ctx context.Context) ([]model.Document, error)

	// FindByID returns a document by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// Insert stores a new document atomically. It returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, doc *model.Document) error

	// Remove deletes a document by ID. It returns nil if the row was deleted or did not exist.
	Remove(ctx context.Context, id string) error
}
