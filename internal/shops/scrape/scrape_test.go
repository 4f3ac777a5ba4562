package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/andreasragnarsson/fashion-finder/internal/shops"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var _ platform.Adapter = (*Adapter)(nil)

const resultsPage = `<html><body>
<ul>
<li class="tile"><a class="link" href="/product/11">x</a><h3>Nike Tech Fleece Hoodie</h3><b>1 099 kr</b><em>Nike</em></li>
<li class="tile"><a class="link" href="/product/12">x</a><h3>Plain Tee</h3><b>199 kr</b></li>
<li class="tile"><a class="link" href="/product/13">x</a><h3>Sold out thing</h3></li>
</ul></body></html>`

const productPage = `<html><body><h1>Nike Tech Fleece Hoodie</h1><span class="price">1 099 kr</span></body></html>`

func newShop(t *testing.T) (*Adapter, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "hoodie", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(resultsPage))
	})
	mux.HandleFunc("/product/11", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(productPage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &models.ShopConfig{
		ID:       "demo_scrape",
		URL:      srv.URL,
		Currency: "SEK",
		Scrape: models.ScrapeConfig{
			ItemSelector:  "li.tile",
			NameSelector:  "h3",
			PriceSelector: "b",
			BrandSelector: "em",
			LinkSelector:  "a.link",
		},
	}
	return New(cfg, shops.Env{Client: srv.Client()}, nil), srv
}

func TestSearchParsesScoresAndSorts(t *testing.T) {
	a, srv := newShop(t)

	res := a.Search(context.Background(), models.SearchQuery{Query: "hoodie", Brand: "Nike"})
	require.NoError(t, res.Err)
	require.Len(t, res.Value, 2)

	top := res.Value[0]
	require.Equal(t, "11", top.ExternalID)
	require.Equal(t, "demo_scrape", top.ShopID)
	require.Equal(t, "SEK", top.Currency)
	require.Equal(t, srv.URL+"/product/11", top.ProductURL)
	require.True(t, decimal.NewFromInt(1099).Equal(top.Price))
	require.GreaterOrEqual(t, top.RelevanceScore, res.Value[1].RelevanceScore)
}

func TestFetchOneAndNotFound(t *testing.T) {
	a, _ := newShop(t)
	ctx := context.Background()

	one := a.FetchOne(ctx, "11")
	require.NoError(t, one.Err)
	require.Equal(t, "Nike Tech Fleece Hoodie", one.Value.Name)
	require.Equal(t, "demo_scrape", one.Value.ShopID)

	missing := a.FetchOne(ctx, "99")
	require.True(t, errors.Is(missing.Err, errx.ErrNotFound))

	av := a.CheckAvailability(ctx, "99")
	require.NoError(t, av.Err)
	require.False(t, av.Value.InStock)
}

func TestSearchServerFailureIsSourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := New(&models.ShopConfig{ID: "down", URL: srv.URL}, shops.Env{Client: srv.Client()}, nil)
	res := a.Search(context.Background(), models.SearchQuery{Query: "x"})
	require.True(t, errors.Is(res.Err, errx.ErrSource))
	require.Empty(t, res.Or(nil))
}

func TestBulkImportIsEmpty(t *testing.T) {
	a, _ := newShop(t)
	res := a.BulkImport(context.Background())
	require.NoError(t, res.Err)
	require.Empty(t, res.Value)
}
