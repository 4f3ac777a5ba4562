// Package store persists watch entries. The monitor only reads active entries and
// writes back price and stock facts; everything else belongs to the CLI and MCP tools.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WatchStore interface {
	// Add assigns an id and timestamps when missing and stores the entry.
	Add(ctx context.Context, w *models.WatchEntry) error
	// Get fails with errx.ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*models.WatchEntry, error)
	ListByUser(ctx context.Context, email string) ([]models.WatchEntry, error)
	ActiveWatches(ctx context.Context) ([]models.WatchEntry, error)
	// UpdatePrice sets the current price and stock flag and lowers the lowest
	// price seen when beaten.
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal, inStock bool) error
	Deactivate(ctx context.Context, id string) error
	Close() error
}

// Open picks the backend from the DSN scheme: sqlite://path or postgres://...
func Open(ctx context.Context, dsn string) (WatchStore, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store dsn %q", dsn)
	}
}

// prepare fills the defaults shared by every backend.
func prepare(w *models.WatchEntry, now time.Time) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CurrentPrice.IsZero() {
		w.CurrentPrice = w.PriceAtAdd
	}
	if w.LowestPriceSeen.IsZero() {
		w.LowestPriceSeen = decimal.Min(w.PriceAtAdd, w.CurrentPrice)
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
}

const watchColumns = `id, user_email, shop_id, product_id, product_name, product_url, currency,
	price_at_add, current_price, lowest_price_seen, target_price,
	notify_any_drop, notify_back_in_stock, in_stock, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWatch(row rowScanner) (models.WatchEntry, error) {
	var (
		w      models.WatchEntry
		target decimal.NullDecimal
	)
	err := row.Scan(
		&w.ID, &w.UserEmail, &w.ShopID, &w.ProductID, &w.ProductName, &w.ProductURL, &w.Currency,
		&w.PriceAtAdd, &w.CurrentPrice, &w.LowestPriceSeen, &target,
		&w.NotifyAnyDrop, &w.NotifyBackInStock, &w.InStock, &w.Active, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return models.WatchEntry{}, err
	}
	if target.Valid {
		t := target.Decimal
		w.TargetPrice = &t
	}
	return w, nil
}

func watchArgs(w *models.WatchEntry) []any {
	var target decimal.NullDecimal
	if w.TargetPrice != nil {
		target = decimal.NewNullDecimal(*w.TargetPrice)
	}
	return []any{
		w.ID, w.UserEmail, w.ShopID, w.ProductID, w.ProductName, w.ProductURL, w.Currency,
		w.PriceAtAdd.StringFixed(2), w.CurrentPrice.StringFixed(2), w.LowestPriceSeen.StringFixed(2), target,
		w.NotifyAnyDrop, w.NotifyBackInStock, w.InStock, w.Active, w.CreatedAt, w.UpdatedAt,
	}
}
