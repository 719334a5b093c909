package tokenstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/token"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const defaultSlot = "default"

// PostgresStore keeps the pair in one row of client_credentials, keyed by slot, so several
// clients can share a database without sharing credentials.
type PostgresStore struct {
	db     *sql.DB
	slot   string
	ownsDB bool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates the client_credentials table if needed.
func NewPostgresStore(db *sql.DB, slot string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("[tokenstore NewPostgresStore] %w: database is required", errors.ErrInvalidConfig)
	}
	if slot == "" {
		slot = defaultSlot
	}
	s := &PostgresStore{db: db, slot: slot}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS client_credentials (
	slot TEXT PRIMARY KEY,
	access TEXT NOT NULL DEFAULT '',
	refresh TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "[tokenstore PostgresStore.ensureSchema] ensure client_credentials schema")
	}
	return nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, pair token.Pair) error {
	const q = `
INSERT INTO client_credentials (slot, access, refresh, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (slot) DO UPDATE SET access = EXCLUDED.access, refresh = EXCLUDED.refresh, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, q, s.slot, pair.Access, pair.Refresh, NowTimeFunc().UTC()); err != nil {
		return errors.Wrapf(err, "[tokenstore PostgresStore.Save] save credentials")
	}
	return nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context) (token.Pair, bool, error) {
	const q = `SELECT access, refresh FROM client_credentials WHERE slot = $1`
	var pair token.Pair
	err := s.db.QueryRowContext(ctx, q, s.slot).Scan(&pair.Access, &pair.Refresh)
	if errors.Is(err, sql.ErrNoRows) {
		return token.Pair{}, false, nil
	}
	if err != nil {
		return token.Pair{}, false, errors.Wrapf(err, "[tokenstore PostgresStore.Load] load credentials")
	}
	return pair, !pair.IsZero(), nil
}

// SetAccess implements Store.
func (s *PostgresStore) SetAccess(ctx context.Context, access string) error {
	const q = `
INSERT INTO client_credentials (slot, access, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (slot) DO UPDATE SET access = EXCLUDED.access, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, q, s.slot, access, NowTimeFunc().UTC()); err != nil {
		return errors.Wrapf(err, "[tokenstore PostgresStore.SetAccess] set access token")
	}
	return nil
}

// Clear implements Store.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_credentials WHERE slot = $1`, s.slot); err != nil {
		return errors.Wrapf(err, "[tokenstore PostgresStore.Clear] clear credentials")
	}
	return nil
}

// Close implements Store. A database passed in by the caller is left open.
func (s *PostgresStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
