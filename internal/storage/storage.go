// Package storage holds the bytes behind catalog entries. Entries only carry a handle (URL);
// the content itself lives in a Storage for as long as the handle is valid.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when no object is stored under the key.
	ErrNotFound = errors.New("object not found")
	// ErrTooLarge is returned by Put when the content exceeds the configured limit.
	ErrTooLarge = errors.New("object too large")
	// ErrExists is returned by Put when key already holds an object. Stored objects are
	// never overwritten.
	ErrExists = errors.New("object already exists")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size is the number of bytes if known, -1 otherwise.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	URL          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a blob store addressed by key. Every key has a handle URL that can be put
// on a catalog entry and resolved back to the key later.
type Storage interface {
	// Put stores the reader's content under a key that is not in use yet.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get returns the content of key as a stream alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes key. Unknown keys are ignored.
	Delete(ctx context.Context, key string) error
	// URL returns the handle for key.
	URL(key string) string
	// Resolve maps a handle back to its key. ok is false for handles this store did not issue.
	Resolve(url string) (key string, ok bool)
}
