package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"
)

type Shops interface {
	Configs() []*models.ShopConfig
	Config(id string) (*models.ShopConfig, bool)
	Skipped() []error
}

type Searcher interface {
	Search(ctx context.Context, req search.Request) []models.ProductResult
	Detail(ctx context.Context, shopID, externalID string, includeCost bool) (*models.ProductResult, error)
}

type Coster interface {
	Calculate(ctx context.Context, p models.ProductResult, shop *models.ShopConfig) (*models.CostBreakdown, error)
}

type Watches interface {
	ListByUser(ctx context.Context, email string) ([]models.WatchEntry, error)
}

type PriceChecker interface {
	CheckAll(ctx context.Context, entries []models.WatchEntry) []*models.PriceCheckOutcome
}

// Deps are the collaborators behind the tools. Watches and Checker may be nil, in
// which case check_prices reports that no watch store is configured.
type Deps struct {
	Shops    Shops
	Searcher Searcher
	Costs    Coster
	Watches  Watches
	Checker  PriceChecker
}

type tools struct {
	Deps
}

func registerTools(s *server.MCPServer, deps Deps) {
	t := &tools{Deps: deps}

	s.AddTool(mcp.NewTool("search_products",
		mcp.WithDescription("Search fashion products across all configured shops, ranked by relevance then landed cost"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text search, e.g. \"navy wool coat\"")),
		mcp.WithString("category", mcp.Description("Category filter")),
		mcp.WithString("brand", mcp.Description("Brand filter")),
		mcp.WithString("color", mcp.Description("Colour filter")),
		mcp.WithString("gender", mcp.Description("men, women, unisex or kids")),
		mcp.WithString("size", mcp.Description("Size filter")),
		mcp.WithNumber("min_price", mcp.Description("Minimum price in shop currency")),
		mcp.WithNumber("max_price", mcp.Description("Maximum price in shop currency")),
		mcp.WithArray("shops", mcp.Description("Shop ids to query (default: all)"), mcp.WithStringItems()),
		mcp.WithBoolean("include_cost", mcp.Description("Attach landed cost (shipping, duty, VAT)")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default: 20)")),
	), t.handleSearchProducts)

	s.AddTool(mcp.NewTool("product_detail",
		mcp.WithDescription("Fetch one product from a shop by its external id"),
		mcp.WithString("shop_id", mcp.Required(), mcp.Description("Shop id")),
		mcp.WithString("product_id", mcp.Required(), mcp.Description("External product id")),
		mcp.WithBoolean("include_cost", mcp.Description("Attach landed cost")),
	), t.handleProductDetail)

	s.AddTool(mcp.NewTool("landed_cost",
		mcp.WithDescription("Estimate shipping, customs duty, import VAT and home-currency total for a price at a shop"),
		mcp.WithString("shop_id", mcp.Required(), mcp.Description("Shop id")),
		mcp.WithNumber("price", mcp.Required(), mcp.Description("Item price")),
		mcp.WithString("currency", mcp.Description("Price currency (default: the shop currency)")),
		mcp.WithString("category", mcp.Description("Item category, selects the duty rate")),
	), t.handleLandedCost)

	s.AddTool(mcp.NewTool("list_shops",
		mcp.WithDescription("List configured shops and the configurations that were skipped"),
	), t.handleListShops)

	s.AddTool(mcp.NewTool("check_prices",
		mcp.WithDescription("Check current prices of a user's active watched products without sending notifications"),
		mcp.WithString("email", mcp.Required(), mcp.Description("Watch owner email")),
	), t.handleCheckPrices)
}

func (t *tools) handleSearchProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := request.GetString("query", "")
	if q == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	query := models.SearchQuery{
		Query:    q,
		Category: request.GetString("category", ""),
		Brand:    request.GetString("brand", ""),
		Color:    request.GetString("color", ""),
		Gender:   request.GetString("gender", ""),
		Size:     request.GetString("size", ""),
		MinPrice: optionalPrice(request, "min_price"),
		MaxPrice: optionalPrice(request, "max_price"),
		Limit:    request.GetInt("limit", models.DefaultLimit),
	}
	products := t.Searcher.Search(ctx, search.Request{
		Query:       query,
		Shops:       request.GetStringSlice("shops", nil),
		IncludeCost: request.GetBool("include_cost", false),
		Limit:       query.EffectiveLimit(),
	})
	return jsonResult(products)
}

func (t *tools) handleProductDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	shopID := request.GetString("shop_id", "")
	productID := request.GetString("product_id", "")
	if shopID == "" || productID == "" {
		return mcp.NewToolResultError("shop_id and product_id are required"), nil
	}
	p, err := t.Searcher.Detail(ctx, shopID, productID, request.GetBool("include_cost", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("detail error: %v", err)), nil
	}
	return jsonResult(p)
}

func (t *tools) handleLandedCost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	shopID := request.GetString("shop_id", "")
	shop, ok := t.Shops.Config(shopID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown shop %q", shopID)), nil
	}
	price := optionalPrice(request, "price")
	if price == nil || price.IsNegative() {
		return mcp.NewToolResultError("price must be a non-negative number"), nil
	}
	cost, err := t.Costs.Calculate(ctx, models.ProductResult{
		ShopID:   shop.ID,
		Price:    *price,
		Currency: request.GetString("currency", shop.Currency),
		Category: request.GetString("category", ""),
	}, shop)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cost error: %v", err)), nil
	}
	return jsonResult(cost)
}

type shopInfo struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	URL      string        `json:"url"`
	Region   models.Region `json:"region"`
	Currency string        `json:"currency"`
	Trust    float64       `json:"trust_score"`
}

type shopList struct {
	Shops   []shopInfo `json:"shops"`
	Skipped []string   `json:"skipped,omitempty"`
}

func (t *tools) handleListShops(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var out shopList
	for _, c := range t.Shops.Configs() {
		out.Shops = append(out.Shops, shopInfo{
			ID: c.ID, Name: c.DisplayName, URL: c.URL, Region: c.Region, Currency: c.Currency, Trust: c.TrustScore,
		})
	}
	for _, err := range t.Shops.Skipped() {
		out.Skipped = append(out.Skipped, err.Error())
	}
	return jsonResult(out)
}

func (t *tools) handleCheckPrices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.Watches == nil || t.Checker == nil {
		return mcp.NewToolResultError("no watch store configured"), nil
	}
	email := request.GetString("email", "")
	if email == "" {
		return mcp.NewToolResultError("email is required"), nil
	}
	entries, err := t.Watches.ListByUser(ctx, email)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("watch lookup error: %v", err)), nil
	}
	var active []models.WatchEntry
	for _, e := range entries {
		if e.Active {
			active = append(active, e)
		}
	}
	outcomes := []models.PriceCheckOutcome{}
	for _, o := range t.Checker.CheckAll(ctx, active) {
		if o != nil {
			outcomes = append(outcomes, *o)
		}
	}
	return jsonResult(outcomes)
}

// optionalPrice returns nil when the argument is absent.
func optionalPrice(request mcp.CallToolRequest, key string) *decimal.Decimal {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	d := decimal.NewFromFloat(request.GetFloat(key, 0)).Round(2)
	return &d
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
