package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "watch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddGetAndList(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	target := decimal.RequireFromString("599.00")
	w := &models.WatchEntry{
		UserEmail:     "anna@example.com",
		ShopID:        "zalando_se",
		ProductID:     "NI112S0AB-Q11",
		ProductName:   "Tech Fleece Hoodie",
		Currency:      "SEK",
		PriceAtAdd:    decimal.RequireFromString("899.50"),
		TargetPrice:   &target,
		NotifyAnyDrop: true,
		InStock:       true,
		Active:        true,
	}
	require.NoError(t, s.Add(ctx, w))
	require.NotEmpty(t, w.ID)

	got, err := s.Get(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, "Tech Fleece Hoodie", got.ProductName)
	require.True(t, w.PriceAtAdd.Equal(got.CurrentPrice))
	require.True(t, w.PriceAtAdd.Equal(got.LowestPriceSeen))
	require.True(t, target.Equal(*got.TargetPrice))
	require.True(t, got.NotifyAnyDrop)
	require.False(t, got.NotifyBackInStock)
	require.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)

	list, err := s.ListByUser(ctx, "anna@example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = s.Get(ctx, "missing")
	require.True(t, errors.Is(err, errx.ErrNotFound))
}

func TestUpdatePriceTracksLowest(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	w := &models.WatchEntry{UserEmail: "a@b.c", ShopID: "s", ProductID: "p", Currency: "SEK",
		PriceAtAdd: decimal.NewFromInt(1000), Active: true, InStock: true}
	require.NoError(t, s.Add(ctx, w))

	require.NoError(t, s.UpdatePrice(ctx, w.ID, decimal.NewFromInt(950), true))
	require.NoError(t, s.UpdatePrice(ctx, w.ID, decimal.NewFromInt(990), false))

	got, err := s.Get(ctx, w.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(990).Equal(got.CurrentPrice))
	require.True(t, decimal.NewFromInt(950).Equal(got.LowestPriceSeen))
	require.False(t, got.InStock)
	require.Nil(t, got.TargetPrice)

	err = s.UpdatePrice(ctx, "missing", decimal.NewFromInt(1), true)
	require.True(t, errors.Is(err, errx.ErrNotFound))
}

func TestActiveWatchesSkipsDeactivated(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Add(ctx, &models.WatchEntry{ID: id, UserEmail: "a@b.c", ShopID: "s", ProductID: id,
			Currency: "SEK", PriceAtAdd: decimal.NewFromInt(100), Active: true}))
	}
	require.NoError(t, s.Deactivate(ctx, "b"))

	active, err := s.ActiveWatches(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "a", active[0].ID)
	require.Equal(t, "c", active[1].ID)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "mysql://x")
	require.Error(t, err)
}
