// Package store holds the two durable halves of the image lifecycle: the
// relational derivative table (Metadata) and the blob filesystem (Blobs).
// Neither knows about the pipelines that drive them.
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/imgstore/internal/format"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrConflict reports a primary-key violation on insert: the
// (identifier, format) derivative already has a row. The ingest pipeline
// recovers by minting a fresh identifier; the serve pipeline recovers by
// discarding the losing lazy derivative.
var ErrConflict = errors.New("derivative row already exists")

// Derivative is one (identifier, format) row as returned by Lookup.
type Derivative struct {
	Format    format.Format
	Computed  bool
	ExpiresAt time.Time
}

// Metadata is the derivative table, reachable over Postgres (postgres:// or
// postgresql:// URLs via lib/pq) or SQLite (anything else, via modernc).
// Queries are written with ? placeholders and rebound per driver.
type Metadata struct {
	db *sqlx.DB
}

// Open connects to the database named by url, runs the embedded goose
// migrations, and returns the store.
func Open(url string) (*Metadata, error) {
	driver, dsn := driverFor(url)

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	goose.SetBaseFS(migrations)
	dialect := "postgres"
	if driver == "sqlite" {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Metadata{db: db}, nil
}

func driverFor(url string) (driver, dsn string) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "postgres", url
	}
	return "sqlite", strings.TrimPrefix(url, "sqlite://")
}

func (m *Metadata) Close() error {
	return m.db.Close()
}

// Insert creates the row for (id, f) with computed=false. Returns
// ErrConflict on a primary-key violation.
func (m *Metadata) Insert(ctx context.Context, id uuid.UUID, f format.Format, expiresAt time.Time) error {
	q := m.db.Rebind(`INSERT INTO images (identifier, format, computed, expires_at) VALUES (?, ?, FALSE, ?)`)
	if _, err := m.db.ExecContext(ctx, q, id[:], f.Tag(), expiresAt.UnixMilli()); err != nil {
		if isConflict(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert derivative: %w", err)
	}
	return nil
}

// IdentifierExists reports whether any row carries id, in any format.
func (m *Metadata) IdentifierExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	q := m.db.Rebind(`SELECT EXISTS (SELECT 1 FROM images WHERE identifier = ?)`)
	if err := m.db.GetContext(ctx, &exists, q, id[:]); err != nil {
		return false, fmt.Errorf("identifier exists: %w", err)
	}
	return exists, nil
}

// Lookup returns all rows for id. An empty slice is a valid result.
func (m *Metadata) Lookup(ctx context.Context, id uuid.UUID) ([]Derivative, error) {
	q := m.db.Rebind(`SELECT format, computed, expires_at FROM images WHERE identifier = ?`)
	rows, err := m.db.QueryxContext(ctx, q, id[:])
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Derivative
	for rows.Next() {
		var (
			tag       string
			computed  bool
			expiresAt int64
		)
		if err := rows.Scan(&tag, &computed, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan derivative: %w", err)
		}
		f, err := format.Parse(tag)
		if err != nil {
			return nil, fmt.Errorf("stored format: %w", err)
		}
		out = append(out, Derivative{
			Format:    f,
			Computed:  computed,
			ExpiresAt: time.UnixMilli(expiresAt).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	return out, nil
}

// MarkComputed flips computed to true for (id, f). Idempotent: flipping an
// already-computed row or a vanished row is not an error.
func (m *Metadata) MarkComputed(ctx context.Context, id uuid.UUID, f format.Format) error {
	q := m.db.Rebind(`UPDATE images SET computed = TRUE WHERE identifier = ? AND format = ?`)
	if _, err := m.db.ExecContext(ctx, q, id[:], f.Tag()); err != nil {
		return fmt.Errorf("mark computed: %w", err)
	}
	return nil
}

// Expired names one deleted derivative so the sweeper can remove its file.
type Expired struct {
	Identifier uuid.UUID
	Format     format.Format
}

// DeleteExpired atomically deletes and returns every row whose expiry lies
// before now and whose bytes were computed. Uncomputed rows are left for a
// later sweep so a still-running worker never races a vanished row.
func (m *Metadata) DeleteExpired(ctx context.Context, now time.Time) ([]Expired, error) {
	q := m.db.Rebind(`DELETE FROM images WHERE expires_at < ? AND computed = TRUE RETURNING identifier, format`)
	rows, err := m.db.QueryxContext(ctx, q, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("delete expired: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Expired
	for rows.Next() {
		var (
			raw []byte
			tag string
		)
		if err := rows.Scan(&raw, &tag); err != nil {
			return nil, fmt.Errorf("scan expired: %w", err)
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("stored identifier: %w", err)
		}
		f, err := format.Parse(tag)
		if err != nil {
			return nil, fmt.Errorf("stored format: %w", err)
		}
		out = append(out, Expired{Identifier: id, Format: f})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete expired: %w", err)
	}
	return out, nil
}

// isConflict recognizes a primary-key violation from either driver:
// lib/pq exposes SQLSTATE 23505, modernc sqlite only the constraint text.
func isConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}
