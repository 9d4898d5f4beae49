// Package postgres provides Postgres-backed snapshot persistence.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

const (
	boardName    = "board"
	settingsName = "settings"
)

// StoreConfig controls the Postgres connection pool.
type StoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store keeps one row per snapshot kind in the snapshots table. Saves are
// whole-document upserts.
type Store struct {
	pool pool
}

// NewStore creates a Postgres-backed snapshot store using the provided config.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for
// testing).
func NewStoreWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the snapshots table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS snapshots (
	name TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}

// SaveBoard implements jobs.SnapshotStore.
func (s *Store) SaveBoard(ctx context.Context, snap jobs.BoardSnapshot) error {
	return s.save(ctx, boardName, snap)
}

// LoadBoard implements jobs.SnapshotStore. A missing row yields an empty
// snapshot.
func (s *Store) LoadBoard(ctx context.Context) (jobs.BoardSnapshot, error) {
	var snap jobs.BoardSnapshot
	found, err := s.load(ctx, boardName, &snap)
	if err != nil {
		return nil, err
	}
	if !found {
		return jobs.BoardSnapshot{}, nil
	}
	return snap, nil
}

// SaveSettings implements jobs.SnapshotStore.
func (s *Store) SaveSettings(ctx context.Context, settings jobs.Settings) error {
	return s.save(ctx, settingsName, settings)
}

// LoadSettings implements jobs.SnapshotStore.
func (s *Store) LoadSettings(ctx context.Context) (jobs.Settings, error) {
	var settings jobs.Settings
	if _, err := s.load(ctx, settingsName, &settings); err != nil {
		return jobs.Settings{}, err
	}
	return settings, nil
}

func (s *Store) save(ctx context.Context, name string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", name, err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO snapshots (name, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		name, payload)
	if err != nil {
		return fmt.Errorf("upsert %s snapshot: %w", name, err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, name string, out any) (bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM snapshots WHERE name = $1`, name).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select %s snapshot: %w", name, err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("unmarshal %s snapshot: %w", name, err)
	}
	return true, nil
}
