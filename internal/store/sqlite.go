package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// SQLiteStore keeps prices as TEXT so they round-trip without float drift.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	const createTable = `
CREATE TABLE IF NOT EXISTS watch_entries (
  id TEXT PRIMARY KEY,
  user_email TEXT NOT NULL,
  shop_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL DEFAULT '',
  product_url TEXT NOT NULL DEFAULT '',
  currency TEXT NOT NULL,
  price_at_add TEXT NOT NULL,
  current_price TEXT NOT NULL,
  lowest_price_seen TEXT NOT NULL,
  target_price TEXT,
  notify_any_drop INTEGER NOT NULL DEFAULT 1,
  notify_back_in_stock INTEGER NOT NULL DEFAULT 0,
  in_stock INTEGER NOT NULL DEFAULT 1,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create watch_entries: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_watch_user ON watch_entries(user_email);`); err != nil {
		return fmt.Errorf("create user index: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_watch_active ON watch_entries(active);`); err != nil {
		return fmt.Errorf("create active index: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Add(ctx context.Context, w *models.WatchEntry) error {
	prepare(w, s.now().UTC())
	_, err := s.db.ExecContext(ctx, `INSERT INTO watch_entries (`+watchColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, watchArgs(w)...)
	if err != nil {
		return fmt.Errorf("insert watch: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.WatchEntry, error) {
	w, err := scanWatch(s.db.QueryRowContext(ctx, `SELECT `+watchColumns+` FROM watch_entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errx.NotFound("", "watch "+id)
	}
	if err != nil {
		return nil, fmt.Errorf("get watch: %w", err)
	}
	return &w, nil
}

func (s *SQLiteStore) ListByUser(ctx context.Context, email string) ([]models.WatchEntry, error) {
	return s.query(ctx, `SELECT `+watchColumns+` FROM watch_entries WHERE user_email = ? ORDER BY created_at, id`, email)
}

func (s *SQLiteStore) ActiveWatches(ctx context.Context) ([]models.WatchEntry, error) {
	return s.query(ctx, `SELECT `+watchColumns+` FROM watch_entries WHERE active = 1 ORDER BY created_at, id`)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]models.WatchEntry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
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

func (s *SQLiteStore) UpdatePrice(ctx context.Context, id string, price decimal.Decimal, inStock bool) error {
	p := price.StringFixed(2)
	res, err := s.db.ExecContext(ctx, `
UPDATE watch_entries SET
  current_price = ?1,
  lowest_price_seen = CASE WHEN CAST(?1 AS REAL) < CAST(lowest_price_seen AS REAL) THEN ?1 ELSE lowest_price_seen END,
  in_stock = ?2,
  updated_at = ?3
WHERE id = ?4`, p, inStock, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update watch price: %w", err)
	}
	return expectOne(res, id)
}

func (s *SQLiteStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE watch_entries SET active = 0, updated_at = ? WHERE id = ?`, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate watch: %w", err)
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return errx.NotFound("", "watch "+id)
	}
	return nil
}
