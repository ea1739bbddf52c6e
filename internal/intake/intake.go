// Package intake turns an upload into a catalog entry.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"doccatalog/internal/model"
	"doccatalog/internal/storage"
)

var (
	// ErrValidation is the parent of every input error below.
	ErrValidation      = errors.New("validation failed")
	ErrFileRequired    = fmt.Errorf("%w: file is required", ErrValidation)
	ErrSubjectRequired = fmt.Errorf("%w: subject is required", ErrValidation)
	ErrNameRequired    = fmt.Errorf("%w: name is required", ErrValidation)
)

// Upload is what the user submits.
type Upload struct {
	Filename    string
	ContentType string
	// Size is the length of Body in bytes, -1 if unknown.
	Size        int64
	Body        io.Reader
	Subject     string
	Keywords    string
	Description string
}

// ParseKeywords splits comma separated text into trimmed, non-empty keywords.
// Order and duplicates are preserved. The result is never nil.
func ParseKeywords(text string) []string {
	out := make([]string, 0)
	for _, k := range strings.Split(text, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// NormalizeEntry checks doc against the entry rules and rewrites it in place to its
// stored form: subject trimmed, keywords trimmed with empty tokens dropped, upload date
// in UTC at millisecond precision. After a successful call doc reads back unchanged.
// A rejected doc is left as it was.
func NormalizeEntry(doc *model.Document) error {
	if strings.TrimSpace(doc.Name) == "" {
		return ErrNameRequired
	}
	subject := strings.TrimSpace(doc.Subject)
	if subject == "" {
		return ErrSubjectRequired
	}
	doc.Subject = subject

	keywords := make([]string, 0, len(doc.Keywords))
	for _, k := range doc.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	doc.Keywords = keywords
	doc.UploadDate = doc.UploadDate.UTC().Truncate(time.Millisecond)
	return nil
}

// Builder validates uploads and stores their bytes.
type Builder struct {
	blobs storage.Storage
	newID func() string
	now   func() time.Time
}

type Option func(*Builder)

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(fn func() string) Option {
	return func(b *Builder) { b.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(b *Builder) { b.now = fn }
}

func NewBuilder(blobs storage.Storage, opts ...Option) *Builder {
	b := &Builder{blobs: blobs, newID: uuid.NewString, now: time.Now}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build validates u, stores its body and returns the entry describing it.
// On a validation error nothing is stored.
func (b *Builder) Build(ctx context.Context, u Upload) (*model.Document, error) {
	if u.Body == nil || strings.TrimSpace(u.Filename) == "" {
		return nil, ErrFileRequired
	}
	subject := strings.TrimSpace(u.Subject)
	if subject == "" {
		return nil, ErrSubjectRequired
	}

	id := b.newID()
	info, err := b.blobs.Put(ctx, id, u.Body, storage.PutObjectOptions{
		Size:        u.Size,
		ContentType: u.ContentType,
		Metadata:    map[string]string{"filename": u.Filename},
	})
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	return &model.Document{
		ID:          id,
		Name:        u.Filename,
		Type:        u.ContentType,
		Size:        info.Size,
		Subject:     subject,
		Keywords:    ParseKeywords(u.Keywords),
		Description: u.Description,
		UploadDate:  b.now().UTC().Truncate(time.Millisecond),
		URL:         info.URL,
	}, nil
}
