package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	_ "modernc.org/sqlite"

	"doccatalog/internal/config"
)

// MemoryPath opens a private in-memory database. Such a database lives as long as its
// single connection, so the pool is pinned to one connection.
const MemoryPath = ":memory:"

var sqlOpen = sql.Open

// BuildSQLiteDSN constructs a modernc.org/sqlite DSN with connection pragmas.
// Example: file:catalog.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)
func BuildSQLiteDSN(c config.StoreConfig) (string, error) {
	if strings.TrimSpace(c.Path) == "" {
		return "", fmt.Errorf("invalid store config: path is required")
	}

	pragmas := make([]string, 0, 3)
	if c.BusyTimeoutMs > 0 {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=busy_timeout(%d)", c.BusyTimeoutMs))
	}
	pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	if c.Path != MemoryPath {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}

	return "file:" + c.Path + "?" + strings.Join(pragmas, "&"), nil
}

// NewSQLite opens the local catalog database through the otelsql-wrapped sqlite driver
// and applies pooling settings.
func NewSQLite(c config.StoreConfig) (*sql.DB, error) {
	dsn, err := BuildSQLiteDSN(c)
	if err != nil {
		return nil, err
	}

	driverName, err := otelsql.Register("sqlite",
		otelsql.WithAttributes(semconv.DBSystemSqlite),
		otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	switch {
	case c.Path == MemoryPath:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	default:
		if c.MaxOpenConns > 0 {
			db.SetMaxOpenConns(c.MaxOpenConns)
		}
		if c.MaxIdleConns > 0 {
			db.SetMaxIdleConns(c.MaxIdleConns)
		}
		if c.ConnMaxLifetimeSec > 0 {
			db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}
