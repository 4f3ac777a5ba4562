package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeShops struct{ configs []*models.ShopConfig }

func (f fakeShops) Configs() []*models.ShopConfig { return f.configs }

func (f fakeShops) Config(id string) (*models.ShopConfig, bool) {
	for _, c := range f.configs {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

func (f fakeShops) Skipped() []error {
	return []error{errx.Configuration("broken", "load", errors.New("missing url"))}
}

type fakeSearcher struct{ last search.Request }

func (f *fakeSearcher) Search(_ context.Context, req search.Request) []models.ProductResult {
	f.last = req
	return []models.ProductResult{{ShopID: "a", ExternalID: "1", Name: "Wool coat", Price: decimal.NewFromInt(999)}}
}

func (f *fakeSearcher) Detail(_ context.Context, shopID, id string, _ bool) (*models.ProductResult, error) {
	if id != "1" {
		return nil, errx.NotFound(shopID, "product "+id)
	}
	return &models.ProductResult{ShopID: shopID, ExternalID: id, Name: "Wool coat"}, nil
}

type fakeCoster struct{}

func (fakeCoster) Calculate(_ context.Context, p models.ProductResult, _ *models.ShopConfig) (*models.CostBreakdown, error) {
	return &models.CostBreakdown{Total: p.Price.Add(decimal.NewFromInt(49)), HomeCurrency: "SEK"}, nil
}

type fakeWatches struct{}

func (fakeWatches) ListByUser(_ context.Context, email string) ([]models.WatchEntry, error) {
	return []models.WatchEntry{
		{ID: "w1", UserEmail: email, Active: true},
		{ID: "w2", UserEmail: email, Active: false},
	}, nil
}

type fakeChecker struct{ checked []string }

func (f *fakeChecker) CheckAll(_ context.Context, entries []models.WatchEntry) []*models.PriceCheckOutcome {
	out := make([]*models.PriceCheckOutcome, len(entries))
	for i, e := range entries {
		f.checked = append(f.checked, e.ID)
		out[i] = &models.PriceCheckOutcome{WatchID: e.ID, NewPrice: decimal.NewFromInt(100)}
	}
	return out
}

func newTools() (*tools, *fakeSearcher, *fakeChecker) {
	s := &fakeSearcher{}
	c := &fakeChecker{}
	return &tools{Deps: Deps{
		Shops:    fakeShops{configs: []*models.ShopConfig{{ID: "a", DisplayName: "Shop A", Currency: "EUR"}}},
		Searcher: s,
		Costs:    fakeCoster{},
		Watches:  fakeWatches{},
		Checker:  c,
	}}, s, c
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestSearchProductsBuildsRequest(t *testing.T) {
	tl, s, _ := newTools()

	res, err := tl.handleSearchProducts(context.Background(), call(map[string]any{
		"query": "wool coat", "brand": "Acne", "max_price": 1500.0, "shops": []any{"a"}, "include_cost": true, "limit": 5.0,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Contains(t, text(t, res), "Wool coat")

	require.Equal(t, "wool coat", s.last.Query.Query)
	require.Equal(t, "Acne", s.last.Query.Brand)
	require.Nil(t, s.last.Query.MinPrice)
	require.True(t, decimal.NewFromInt(1500).Equal(*s.last.Query.MaxPrice))
	require.Equal(t, []string{"a"}, s.last.Shops)
	require.True(t, s.last.IncludeCost)
	require.Equal(t, 5, s.last.Limit)

	res, err = tl.handleSearchProducts(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestProductDetailAndLandedCost(t *testing.T) {
	tl, _, _ := newTools()

	res, err := tl.handleProductDetail(context.Background(), call(map[string]any{"shop_id": "a", "product_id": "2"}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, text(t, res), "not_found")

	res, err = tl.handleLandedCost(context.Background(), call(map[string]any{"shop_id": "a", "price": 100.0}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	var cost models.CostBreakdown
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &cost))
	require.True(t, decimal.NewFromInt(149).Equal(cost.Total))

	res, err = tl.handleLandedCost(context.Background(), call(map[string]any{"shop_id": "nope", "price": 1.0}))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestListShopsAndCheckPrices(t *testing.T) {
	tl, _, checker := newTools()

	res, err := tl.handleListShops(context.Background(), call(nil))
	require.NoError(t, err)
	var list shopList
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &list))
	require.Len(t, list.Shops, 1)
	require.Equal(t, "Shop A", list.Shops[0].Name)
	require.Len(t, list.Skipped, 1)

	res, err = tl.handleCheckPrices(context.Background(), call(map[string]any{"email": "a@example.com"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, []string{"w1"}, checker.checked)

	tl.Watches = nil
	res, err = tl.handleCheckPrices(context.Background(), call(map[string]any{"email": "a@example.com"}))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestHTTPHandlerAuthAndHealth(t *testing.T) {
	tl, _, _ := newTools()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fashionfinder_up 1\n"))
	})
	srv := httptest.NewServer(NewHandler(tl.Deps, HTTPOptions{APIKey: "secret", Metrics: metrics}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
