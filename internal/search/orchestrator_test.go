package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/observability"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	id       string
	products []models.ProductResult
	err      error
	panics   bool
	block    bool
}

func (f *fakeAdapter) ShopID() string      { return f.id }
func (f *fakeAdapter) Kind() platform.Kind { return platform.KindFeed }

func (f *fakeAdapter) Search(ctx context.Context, _ models.SearchQuery) platform.Result[[]models.ProductResult] {
	if f.panics {
		panic("boom")
	}
	if f.block {
		<-ctx.Done()
		return platform.Fail[[]models.ProductResult](errx.Source(f.id, "search", ctx.Err()))
	}
	if f.err != nil {
		return platform.Fail[[]models.ProductResult](f.err)
	}
	return platform.OK(f.products)
}

func (f *fakeAdapter) FetchOne(_ context.Context, id string) platform.Result[*models.ProductResult] {
	for _, p := range f.products {
		if p.ExternalID == id {
			return platform.OK(&p)
		}
	}
	return platform.Fail[*models.ProductResult](errx.NotFound(f.id, "product "+id))
}

func (f *fakeAdapter) BulkImport(context.Context) platform.Result[[]models.ProductResult] {
	return platform.OK(f.products)
}

func (f *fakeAdapter) CheckAvailability(ctx context.Context, id string) platform.Result[platform.Availability] {
	return platform.AvailabilityOf(f.FetchOne(ctx, id))
}

type fakeSource struct {
	adapters []platform.Adapter
	configs  map[string]*models.ShopConfig
}

func (s *fakeSource) Subset(ids []string) []platform.Adapter {
	if len(ids) == 0 {
		return s.adapters
	}
	var out []platform.Adapter
	for _, a := range s.adapters {
		for _, id := range ids {
			if a.ShopID() == id {
				out = append(out, a)
			}
		}
	}
	return out
}

func (s *fakeSource) Adapter(id string) (platform.Adapter, error) {
	for _, a := range s.adapters {
		if a.ShopID() == id {
			return a, nil
		}
	}
	return nil, errx.NotFound(id, "shop")
}

func (s *fakeSource) Config(id string) (*models.ShopConfig, bool) {
	c, ok := s.configs[id]
	return c, ok
}

// flatCost adds a fixed 10 to the price and fails for one shop.
type flatCost struct{ failFor string }

func (c flatCost) Calculate(_ context.Context, p models.ProductResult, shop *models.ShopConfig) (*models.CostBreakdown, error) {
	if shop.ID == c.failFor {
		return nil, errors.New("no rate")
	}
	total := p.Price.Add(decimal.NewFromInt(10))
	return &models.CostBreakdown{Shipping: decimal.NewFromInt(10), Total: total, TotalHome: total, HomeCurrency: "SEK"}, nil
}

func product(shop, id string, price int64, score float64) models.ProductResult {
	return models.ProductResult{ShopID: shop, ExternalID: id, Name: id, Price: decimal.NewFromInt(price), RelevanceScore: score}
}

func ids(products []models.ProductResult) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ShopID + "/" + p.ExternalID
	}
	return out
}

func newSource(adapters ...platform.Adapter) *fakeSource {
	s := &fakeSource{adapters: adapters, configs: map[string]*models.ShopConfig{}}
	for _, a := range adapters {
		s.configs[a.ShopID()] = &models.ShopConfig{ID: a.ShopID()}
	}
	return s
}

func TestFailingAdaptersContributeNothing(t *testing.T) {
	src := newSource(
		&fakeAdapter{id: "a", products: []models.ProductResult{product("a", "1", 100, 0.9)}},
		&fakeAdapter{id: "b", err: errx.Source("b", "search", errors.New("503"))},
		&fakeAdapter{id: "c", panics: true},
		&fakeAdapter{id: "d", block: true},
		&fakeAdapter{id: "e", products: []models.ProductResult{product("e", "2", 50, 0.5), product("e", "3", 70, 0.7)}},
	)
	m := observability.NewMetrics()
	o := New(src, nil, WithMetrics(m), WithAdapterTimeout(50*time.Millisecond))

	got := o.Search(context.Background(), Request{Query: models.SearchQuery{Query: "x"}})
	require.Equal(t, []string{"a/1", "e/3", "e/2"}, ids(got))

	series, err := testutil.GatherAndCount(m.Registry(), "fashionfinder_adapter_searches_total")
	require.NoError(t, err)
	require.Equal(t, 5, series)
}

func TestSearchSubsetAndLimit(t *testing.T) {
	src := newSource(
		&fakeAdapter{id: "a", products: []models.ProductResult{product("a", "1", 100, 0.9), product("a", "2", 100, 0.1)}},
		&fakeAdapter{id: "b", products: []models.ProductResult{product("b", "1", 100, 0.8)}},
	)
	o := New(src, nil)

	got := o.Search(context.Background(), Request{Shops: []string{"a"}, Limit: 1})
	require.Equal(t, []string{"a/1"}, ids(got))

	got = o.Search(context.Background(), Request{})
	require.Equal(t, []string{"a/1", "b/1", "a/2"}, ids(got))
}

func TestCostEnrichmentAndTieBreak(t *testing.T) {
	src := newSource(
		&fakeAdapter{id: "a", products: []models.ProductResult{product("a", "1", 300, 0.5)}},
		&fakeAdapter{id: "b", products: []models.ProductResult{product("b", "1", 250, 0.5)}},
		&fakeAdapter{id: "nocost", products: []models.ProductResult{product("nocost", "1", 255, 0.5)}},
	)
	o := New(src, flatCost{failFor: "nocost"})

	got := o.Search(context.Background(), Request{IncludeCost: true})
	// b lands at 260, nocost falls back to its 255 list price, a lands at 310
	require.Equal(t, []string{"nocost/1", "b/1", "a/1"}, ids(got))
	require.Nil(t, got[0].Cost)
	require.NotNil(t, got[1].Cost)
	require.True(t, decimal.NewFromInt(260).Equal(got[1].Cost.TotalHome))

	got = o.Search(context.Background(), Request{})
	for _, p := range got {
		require.Nil(t, p.Cost)
	}
}

func TestRank(t *testing.T) {
	products := []models.ProductResult{
		product("a", "cheap-low", 10, 0.2),
		product("a", "pricey-high", 500, 0.9),
		product("a", "cheap-high", 100, 0.9),
	}
	Rank(products)
	require.Equal(t, []string{"a/cheap-high", "a/pricey-high", "a/cheap-low"}, ids(products))
}

func TestDetail(t *testing.T) {
	src := newSource(&fakeAdapter{id: "a", products: []models.ProductResult{product("a", "1", 90, 0)}})
	o := New(src, flatCost{})

	p, err := o.Detail(context.Background(), "a", "1", true)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(100).Equal(p.Cost.Total))

	_, err = o.Detail(context.Background(), "a", "missing", false)
	require.True(t, errors.Is(err, errx.ErrNotFound))

	_, err = o.Detail(context.Background(), "nope", "1", false)
	require.True(t, errors.Is(err, errx.ErrNotFound))
}
