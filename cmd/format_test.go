package cmd

import (
	"bytes"
	"testing"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	require.Equal(t, "1 234 567.50 SEK", formatPrice(decimal.RequireFromString("1234567.5"), "SEK"))
	require.Equal(t, "999.00 EUR", formatPrice(decimal.NewFromInt(999), "EUR"))
	require.Equal(t, "-1 000.00", formatPrice(decimal.NewFromInt(-1000), ""))
}

func TestCleanURLKeepsAffiliateTarget(t *testing.T) {
	require.Equal(t, "https://shop.example/p/1", cleanURL("https://shop.example/p/1?utm_source=x"))
	aff := "https://track.example/t?a=1&url=https%3A%2F%2Fshop.example%2Fp%2F1"
	require.Equal(t, aff, cleanURL(aff))
}

func TestFacetsAndBreadcrumb(t *testing.T) {
	products := []models.ProductResult{
		{Brand: "Nike", ShopID: "a"}, {Brand: "Adidas", ShopID: "a"}, {Brand: "Nike", ShopID: "b"}, {ShopID: "b"},
	}
	brands := countFacet(products, func(p models.ProductResult) string { return p.Brand })
	require.Equal(t, []facetCount{{"Nike", 2}, {"Adidas", 1}}, brands)

	require.Equal(t, "Dam > Jackor > Rain Coats", formatBreadcrumb("dam/jackor/rain-coats"))
	require.Equal(t, "Överdelar", formatBreadcrumb("överdelar"))
}

func TestPrintProductsTable(t *testing.T) {
	was := decimal.NewFromInt(1000)
	var buf bytes.Buffer
	printProductsTable(&buf, []models.ProductResult{{
		ShopID: "zalando_se", Name: "Parka", Brand: "Holzweiler", Price: decimal.NewFromInt(750), Currency: "SEK",
		OriginalPrice: &was, InStock: true, ProductURL: "https://www.zalando.se/parka.html?x=1",
		Cost: &models.CostBreakdown{Total: decimal.NewFromInt(750), TotalHome: decimal.NewFromInt(750), HomeCurrency: "SEK"},
	}})
	out := buf.String()
	require.Contains(t, out, "1. Holzweiler Parka")
	require.Contains(t, out, "(was 1 000.00 SEK, -25%)")
	require.Contains(t, out, "Landed: 750.00 SEK")
	require.Contains(t, out, "https://www.zalando.se/parka.html\n")

	buf.Reset()
	printProductsTable(&buf, nil)
	require.Equal(t, "No products found.\n", buf.String())
}
