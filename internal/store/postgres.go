package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore keeps prices as NUMERIC(12,2) and reads them back as text.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

const pgSelect = `SELECT id, user_email, shop_id, product_id, product_name, product_url, currency,
	price_at_add::text, current_price::text, lowest_price_seen::text, target_price::text,
	notify_any_drop, notify_back_in_stock, in_stock, active, created_at, updated_at
FROM watch_entries`

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{pool: pool, now: time.Now}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS watch_entries (
  id TEXT PRIMARY KEY,
  user_email TEXT NOT NULL,
  shop_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL DEFAULT '',
  product_url TEXT NOT NULL DEFAULT '',
  currency TEXT NOT NULL,
  price_at_add NUMERIC(12,2) NOT NULL,
  current_price NUMERIC(12,2) NOT NULL,
  lowest_price_seen NUMERIC(12,2) NOT NULL,
  target_price NUMERIC(12,2),
  notify_any_drop BOOLEAN NOT NULL DEFAULT TRUE,
  notify_back_in_stock BOOLEAN NOT NULL DEFAULT FALSE,
  in_stock BOOLEAN NOT NULL DEFAULT TRUE,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_watch_user ON watch_entries(user_email);
CREATE INDEX IF NOT EXISTS idx_watch_active ON watch_entries(active);
`)
	if err != nil {
		return fmt.Errorf("create watch_entries: %w", err)
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, w *models.WatchEntry) error {
	prepare(w, s.now().UTC())
	_, err := s.pool.Exec(ctx, `INSERT INTO watch_entries (`+watchColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`, watchArgs(w)...)
	if err != nil {
		return fmt.Errorf("insert watch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.WatchEntry, error) {
	w, err := scanWatch(s.pool.QueryRow(ctx, pgSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errx.NotFound("", "watch "+id)
	}
	if err != nil {
		return nil, fmt.Errorf("get watch: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, email string) ([]models.WatchEntry, error) {
	return s.query(ctx, pgSelect+` WHERE user_email = $1 ORDER BY created_at, id`, email)
}

func (s *PostgresStore) ActiveWatches(ctx context.Context) ([]models.WatchEntry, error) {
	return s.query(ctx, pgSelect+` WHERE active ORDER BY created_at, id`)
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]models.WatchEntry, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query watches: %w", err)
	}
	defer rows.Close()

	var out []models.WatchEntry
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdatePrice(ctx context.Context, id string, price decimal.Decimal, inStock bool) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE watch_entries SET
  current_price = $1::numeric,
  lowest_price_seen = LEAST(lowest_price_seen, $1::numeric),
  in_stock = $2,
  updated_at = $3
WHERE id = $4`, price.StringFixed(2), inStock, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update watch price: %w", err)
	}
	return expectTag(tag, id)
}

func (s *PostgresStore) Deactivate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE watch_entries SET active = FALSE, updated_at = $1 WHERE id = $2`, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate watch: %w", err)
	}
	return expectTag(tag, id)
}

func expectTag(tag pgconn.CommandTag, id string) error {
	if tag.RowsAffected() == 0 {
		return errx.NotFound("", "watch "+id)
	}
	return nil
}
