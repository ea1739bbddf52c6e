package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"doccatalog/internal/intake"
	"doccatalog/internal/listing"
	"doccatalog/internal/logger"
	"doccatalog/internal/metrics"
	"doccatalog/internal/model"
	"doccatalog/internal/repository"
	"doccatalog/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("document not found")
	// ErrBlobUnavailable is returned when an entry's content does not belong to the
	// current session, e.g. it was uploaded before a restart or is a sample.
	ErrBlobUnavailable = errors.New("document content is not available in this session")
)

var tracer = otel.Tracer("doccatalog/internal/service")

// Seeder fills an empty catalog.
type Seeder interface {
	SeedIfEmpty(ctx context.Context) (int, error)
}

// CatalogService defines the use cases of the document catalog.
type CatalogService interface {
	// Initialize prepares the local store. Safe to call repeatedly.
	Initialize(ctx context.Context) error

	// GetDocuments returns every entry, seeding the samples first if the catalog is empty.
	// The order is unspecified.
	GetDocuments(ctx context.Context) ([]model.Document, error)

	// AddDocument stores a new entry. doc is normalized in place (see intake.NormalizeEntry)
	// so it equals what is read back. A taken id yields repository.ErrDuplicateKey.
	AddDocument(ctx context.Context, doc *model.Document) error

	// DeleteDocument removes an entry and releases its session content. Unknown ids are not an error.
	DeleteDocument(ctx context.Context, id string) error

	// GetDocument returns a single entry by its ID.
	GetDocument(ctx context.Context, id string) (*model.Document, error)

	// ListDocuments returns every entry ordered by field and direction.
	ListDocuments(ctx context.Context, field listing.Field, dir listing.Direction) ([]model.Document, error)

	// RecentDocuments returns the newest entries, at most limit (listing.DefaultRecentLimit if <= 0).
	RecentDocuments(ctx context.Context, limit int) ([]model.Document, error)

	// Upload stores the content in the session blob store and adds the resulting entry.
	// If the entry cannot be stored the content is removed again.
	Upload(ctx context.Context, u intake.Upload) (*model.Document, error)

	// OpenDocument returns the entry and a reader over its content.
	OpenDocument(ctx context.Context, id string) (io.ReadCloser, *model.Document, error)
}

// catalogService is a concrete implementation of CatalogService.
type catalogService struct {
	repo    repository.DocumentRepository
	seeder  Seeder
	blobs   storage.Storage
	builder *intake.Builder
	log     *zap.Logger
	metrics *metrics.Catalog
}

// NewCatalogService constructs a new CatalogService. seeder may be nil to disable seeding,
// builder may be nil to use an intake.Builder over blobs, m may be nil to disable metrics.
func NewCatalogService(
	repo repository.DocumentRepository,
	seeder Seeder,
	blobs storage.Storage,
	builder *intake.Builder,
	log *zap.Logger,
	m *metrics.Catalog,
) CatalogService {
	if builder == nil {
		builder = intake.NewBuilder(blobs)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &catalogService{
		repo:    repo,
		seeder:  seeder,
		blobs:   blobs,
		builder: builder,
		log:     log.With(zap.String("component", "catalog")),
		metrics: m,
	}
}

func (s *catalogService) Initialize(ctx context.Context) (err error) {
	ctx, done := s.track(ctx, "initialize")
	defer done(&err)

	return s.repo.Initialize(ctx)
}

func (s *catalogService) GetDocuments(ctx context.Context) (docs []model.Document, err error) {
	ctx, done := s.track(ctx, "get_documents")
	defer done(&err)

	return s.getDocuments(ctx)
}

func (s *catalogService) getDocuments(ctx context.Context) ([]model.Document, error) {
	if err := s.repo.Initialize(ctx); err != nil {
		return nil, err
	}
	docs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) > 0 || s.seeder == nil {
		return docs, nil
	}

	n, err := s.seeder.SeedIfEmpty(ctx)
	s.metrics.Seeded(n)
	if err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	if n > 0 {
		logger.FromContextOr(ctx, s.log).Info("catalog_seeded", zap.Int("inserted", n))
	}
	return s.repo.ListAll(ctx)
}

func (s *catalogService) AddDocument(ctx context.Context, doc *model.Document) (err error) {
	ctx, done := s.track(ctx, "add_document")
	defer done(&err)

	return s.addDocument(ctx, doc)
}

func (s *catalogService) addDocument(ctx context.Context, doc *model.Document) error {
	if doc == nil || doc.ID == "" {
		return ErrIDRequired
	}
	if err := intake.NormalizeEntry(doc); err != nil {
		return err
	}
	if err := s.repo.Initialize(ctx); err != nil {
		return err
	}
	return s.repo.Insert(ctx, doc)
}

func (s *catalogService) DeleteDocument(ctx context.Context, id string) (err error) {
	ctx, done := s.track(ctx, "delete_document", attribute.String("document.id", id))
	defer done(&err)

	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.Initialize(ctx); err != nil {
		return err
	}

	// look up the handle first; an unknown id still goes through Remove
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if err := s.repo.Remove(ctx, id); err != nil {
		return err
	}

	if doc != nil {
		if key, ok := s.blobs.Resolve(doc.URL); ok {
			if delErr := s.blobs.Delete(ctx, key); delErr != nil {
				logger.FromContextOr(ctx, s.log).Warn("blob_release_failed",
					zap.String("id", id),
					zap.Error(delErr),
				)
			}
		}
	}
	return nil
}

func (s *catalogService) GetDocument(ctx context.Context, id string) (doc *model.Document, err error) {
	ctx, done := s.track(ctx, "get_document", attribute.String("document.id", id))
	defer done(&err)

	return s.getDocument(ctx, id)
}

func (s *catalogService) getDocument(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if err := s.repo.Initialize(ctx); err != nil {
		return nil, err
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *catalogService) ListDocuments(ctx context.Context, field listing.Field, dir listing.Direction) (docs []model.Document, err error) {
	ctx, done := s.track(ctx, "list_documents",
		attribute.String("sort.field", string(field)),
		attribute.String("sort.direction", string(dir)),
	)
	defer done(&err)

	all, err := s.getDocuments(ctx)
	if err != nil {
		return nil, err
	}
	return listing.Sort(all, field, dir), nil
}

func (s *catalogService) RecentDocuments(ctx context.Context, limit int) (docs []model.Document, err error) {
	ctx, done := s.track(ctx, "recent_documents", attribute.Int("limit", limit))
	defer done(&err)

	all, err := s.getDocuments(ctx)
	if err != nil {
		return nil, err
	}
	return listing.Recent(all, limit), nil
}

func (s *catalogService) Upload(ctx context.Context, u intake.Upload) (doc *model.Document, err error) {
	ctx, done := s.track(ctx, "upload", attribute.String("file.name", u.Filename))
	defer done(&err)

	doc, err = s.builder.Build(ctx, u)
	if err != nil {
		return nil, err
	}

	if err := s.addDocument(ctx, doc); err != nil {
		// Rollback: delete the content from the blob store, even if the caller has gone
		key, ok := s.blobs.Resolve(doc.URL)
		if !ok {
			return nil, fmt.Errorf("db save failed: %w", err)
		}
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %w; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return doc, nil
}

func (s *catalogService) OpenDocument(ctx context.Context, id string) (rc io.ReadCloser, doc *model.Document, err error) {
	ctx, done := s.track(ctx, "open_document", attribute.String("document.id", id))
	defer done(&err)

	doc, err = s.getDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	key, ok := s.blobs.Resolve(doc.URL)
	if !ok {
		return nil, nil, ErrBlobUnavailable
	}
	rc, _, err = s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrBlobUnavailable
		}
		return nil, nil, fmt.Errorf("read content: %w", err)
	}
	return rc, doc, nil
}

// track opens a span for op and returns a function that ends it, records the outcome in
// metrics and logs failures. done must be deferred with a pointer to the named error result.
func (s *catalogService) track(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "catalog."+op, trace.WithAttributes(attrs...))

	return ctx, func(errp *error) {
		err := *errp
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			log := logger.FromContextOr(ctx, s.log)
			if isClientError(err) {
				log.Warn("catalog_operation_rejected", zap.String("operation", op), zap.Error(err))
			} else {
				log.Error("catalog_operation_failed", zap.String("operation", op), zap.Error(err))
			}
		}
		s.metrics.Observe(op, start, err)
		span.End()
	}
}

func isClientError(err error) bool {
	return errors.Is(err, ErrIDRequired) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrBlobUnavailable) ||
		errors.Is(err, intake.ErrValidation) ||
		errors.Is(err, storage.ErrTooLarge) ||
		errors.Is(err, storage.ErrExists) ||
		errors.Is(err, repository.ErrDuplicateKey)
}
