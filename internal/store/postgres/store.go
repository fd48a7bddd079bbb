// Package postgres provides a Postgres-backed store implementation.
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

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Store persists the three namespaces as JSONB payloads.
//
// Schema:
//
//	CREATE TABLE price_history (
//		product_key TEXT PRIMARY KEY,
//		readings    JSONB NOT NULL,
//		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE TABLE wishlist (
//		product_key TEXT PRIMARY KEY,
//		entry       JSONB NOT NULL,
//		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE TABLE alert_log (
//		singleton   SMALLINT PRIMARY KEY DEFAULT 1 CHECK (singleton = 1),
//		alerts      JSONB NOT NULL,
//		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	pool querier
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
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
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool querier) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// History returns the reading series for a key, oldest first.
func (s *Store) History(ctx context.Context, key string) ([]tracker.Reading, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT readings FROM price_history WHERE product_key = $1`, key,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	var series []tracker.Reading
	if err := json.Unmarshal(payload, &series); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return series, nil
}

// PutHistory upserts the series for a key.
func (s *Store) PutHistory(ctx context.Context, key string, series []tracker.Reading) error {
	payload, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `
INSERT INTO price_history (product_key, readings, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (product_key) DO UPDATE
SET readings = EXCLUDED.readings, updated_at = NOW()`, key, payload); err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	return nil
}

// Entry returns the wishlist entry for a key, nil when absent.
func (s *Store) Entry(ctx context.Context, key string) (*tracker.WishlistEntry, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT entry FROM wishlist WHERE product_key = $1`, key,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select wishlist entry: %w", err)
	}
	var entry tracker.WishlistEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("decode wishlist entry: %w", err)
	}
	return &entry, nil
}

// PutEntry upserts a wishlist entry.
func (s *Store) PutEntry(ctx context.Context, entry tracker.WishlistEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode wishlist entry: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `
INSERT INTO wishlist (product_key, entry, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (product_key) DO UPDATE
SET entry = EXCLUDED.entry, updated_at = NOW()`, entry.ProductKey, payload); err != nil {
		return fmt.Errorf("upsert wishlist entry: %w", err)
	}
	return nil
}

// DeleteEntry removes a wishlist entry; absent keys are a no-op.
func (s *Store) DeleteEntry(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM wishlist WHERE product_key = $1`, key); err != nil {
		return fmt.Errorf("delete wishlist entry: %w", err)
	}
	return nil
}

// Wishlist lists every entry ordered by product key.
func (s *Store) Wishlist(ctx context.Context) ([]tracker.WishlistEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT entry FROM wishlist ORDER BY product_key`)
	if err != nil {
		return nil, fmt.Errorf("select wishlist: %w", err)
	}
	defer rows.Close()

	var out []tracker.WishlistEntry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan wishlist row: %w", err)
		}
		var entry tracker.WishlistEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("decode wishlist row: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist rows: %w", err)
	}
	return out, nil
}

// Alerts returns the global alert log, oldest first.
func (s *Store) Alerts(ctx context.Context) ([]tracker.Alert, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT alerts FROM alert_log WHERE singleton = 1`,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select alert log: %w", err)
	}
	var log []tracker.Alert
	if err := json.Unmarshal(payload, &log); err != nil {
		return nil, fmt.Errorf("decode alert log: %w", err)
	}
	return log, nil
}

// PutAlerts upserts the global alert log.
func (s *Store) PutAlerts(ctx context.Context, log []tracker.Alert) error {
	payload, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode alert log: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `
INSERT INTO alert_log (singleton, alerts, updated_at)
VALUES (1, $1, NOW())
ON CONFLICT (singleton) DO UPDATE
SET alerts = EXCLUDED.alerts, updated_at = NOW()`, payload); err != nil {
		return fmt.Errorf("upsert alert log: %w", err)
	}
	return nil
}
