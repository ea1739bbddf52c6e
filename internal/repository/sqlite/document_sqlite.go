package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"doccatalog/internal/model"
	"doccatalog/internal/repository"
)

const table = "documents"

var columns = []string{"id", "name", "type", "size", "subject", "keywords", "description", "upload_date", "url"}

// Migrator brings the database schema up to date.
type Migrator func(ctx context.Context, db *sql.DB) error

// DocumentSQLite is a SQLite implementation of repository.DocumentRepository.
// Each operation is a single statement and therefore atomic; no operation spans several statements.
type DocumentSQLite struct {
	db      *sql.DB
	migrate Migrator
	log     *zap.Logger

	mu    sync.Mutex
	ready atomic.Bool
}

// NewDocumentSQLite creates a repository over an open database. migrate runs on the first
// successful Initialize; nil means the schema is managed elsewhere.
func NewDocumentSQLite(db *sql.DB, migrate Migrator, log *zap.Logger) *DocumentSQLite {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentSQLite{db: db, migrate: migrate, log: log.With(zap.String("component", "store"))}
}

var _ repository.DocumentRepository = (*DocumentSQLite)(nil)

// Initialize runs the schema migration once. A failed attempt is not remembered,
// so the next call tries again.
func (r *DocumentSQLite) Initialize(ctx context.Context) error {
	if r.ready.Load() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready.Load() {
		return nil
	}

	if err := r.db.PingContext(ctx); err != nil {
		return unavailable("open store", err)
	}
	if r.migrate != nil {
		if err := r.migrate(ctx, r.db); err != nil {
			return unavailable("migrate store", err)
		}
	}

	r.ready.Store(true)
	r.log.Info("store initialized")
	return nil
}

// ListAll returns every stored document.
func (r *DocumentSQLite) ListAll(ctx context.Context) ([]model.Document, error) {
	if err := r.checkReady(); err != nil {
		return nil, err
	}

	q, args, err := squirrel.Select(columns...).From(table).ToSql()
	if err != nil {
		return nil, unavailable("build list query", err)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable("list documents", err)
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list documents", err)
	}
	return items, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentSQLite) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if err := r.checkReady(); err != nil {
		return nil, err
	}

	q, args, err := squirrel.Select(columns...).From(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, unavailable("build find query", err)
	}

	d, err := scanDocument(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// Insert adds a document row. A conflicting id leaves the stored row untouched and
// reports ErrDuplicateKey.
func (r *DocumentSQLite) Insert(ctx context.Context, doc *model.Document) error {
	if err := r.checkReady(); err != nil {
		return err
	}

	kw, err := json.Marshal(model.KeywordsOrEmpty(doc.Keywords))
	if err != nil {
		return unavailable("encode keywords", err)
	}

	q, args, err := squirrel.Insert(table).
		Columns(columns...).
		Values(
			doc.ID,
			doc.Name,
			doc.Type,
			doc.Size,
			doc.Subject,
			string(kw),
			doc.Description,
			model.FormatTime(doc.UploadDate),
			doc.URL,
		).
		Suffix("ON CONFLICT(id) DO NOTHING").
		ToSql()
	if err != nil {
		return unavailable("build insert query", err)
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return unavailable("insert document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("insert document", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateKey, doc.ID)
	}
	return nil
}

// Remove deletes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentSQLite) Remove(ctx context.Context, id string) error {
	if err := r.checkReady(); err != nil {
		return err
	}

	q, args, err := squirrel.Delete(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return unavailable("build delete query", err)
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return unavailable("delete document", err)
	}
	return nil
}

func (r *DocumentSQLite) checkReady() error {
	if !r.ready.Load() {
		return fmt.Errorf("%w: store not initialized", repository.ErrStorageUnavailable)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var (
		d        model.Document
		keywords string
		uploaded string
	)
	if err := s.Scan(
		&d.ID,
		&d.Name,
		&d.Type,
		&d.Size,
		&d.Subject,
		&keywords,
		&d.Description,
		&uploaded,
		&d.URL,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, unavailable("scan document", err)
	}

	if err := json.Unmarshal([]byte(keywords), &d.Keywords); err != nil {
		return nil, unavailable("decode keywords of "+d.ID, err)
	}
	d.Keywords = model.KeywordsOrEmpty(d.Keywords)

	t, err := model.ParseTime(uploaded)
	if err != nil {
		return nil, unavailable("decode upload date of "+d.ID, err)
	}
	d.UploadDate = t

	return &d, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", repository.ErrStorageUnavailable, op, err)
}
