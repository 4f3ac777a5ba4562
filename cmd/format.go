package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/shopspring/decimal"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printProductsTable prints products in a human-friendly card layout.
func printProductsTable(w io.Writer, products []models.ProductResult) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}
	for i, p := range products {
		if i > 0 {
			fmt.Fprintln(w)
		}
		name := p.Name
		if p.Brand != "" && !strings.HasPrefix(strings.ToLower(name), strings.ToLower(p.Brand)) {
			name = p.Brand + " " + name
		}
		if !p.InStock {
			name = "[SOLD OUT] " + name
		}
		fmt.Fprintf(w, " %d. %s\n", i+1, truncate(name, 80))

		// Price line with optional original price and discount
		priceLine := "    Price: " + formatPrice(p.Price, p.Currency)
		if p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.Price) {
			off := p.OriginalPrice.Sub(p.Price).Div(*p.OriginalPrice).Mul(decimal.NewFromInt(100)).Round(0)
			priceLine += fmt.Sprintf("  (was %s, -%s%%)", formatPrice(*p.OriginalPrice, p.Currency), off)
		}
		priceLine += "  |  Shop: " + p.ShopID
		fmt.Fprintln(w, priceLine)

		if p.Cost != nil {
			fmt.Fprintf(w, "    Landed: %s\n", formatCost(p.Cost, p.Currency))
		}
		if len(p.Sizes) > 0 {
			fmt.Fprintf(w, "    Sizes: %s\n", strings.Join(p.Sizes, " "))
		}
		fmt.Fprintf(w, "    Score: %.2f\n", p.RelevanceScore)
		link := p.ProductURL
		if p.AffiliateURL != "" {
			link = p.AffiliateURL
		}
		fmt.Fprintf(w, "    %s\n", cleanURL(link))
	}
}

func formatCost(c *models.CostBreakdown, currency string) string {
	s := fmt.Sprintf("%s (shipping %s, duty %s, VAT %s)",
		formatPrice(c.Total, currency), c.Shipping.StringFixed(2), c.Duty.StringFixed(2), c.VAT.StringFixed(2))
	if c.HomeCurrency != "" && c.HomeCurrency != currency {
		s += " = " + formatPrice(c.TotalHome, c.HomeCurrency)
	}
	return s
}

// formatPrice formats a decimal as "1 234.50 SEK".
func formatPrice(d decimal.Decimal, currency string) string {
	s := d.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var parts []string
	for len(whole) > 3 {
		parts = append([]string{whole[len(whole)-3:]}, parts...)
		whole = whole[:len(whole)-3]
	}
	parts = append([]string{whole}, parts...)
	out := strings.Join(parts, " ") + "." + frac
	if neg {
		out = "-" + out
	}
	if currency != "" {
		out += " " + currency
	}
	return out
}

// cleanURL strips tracking query params unless the URL is an affiliate redirect,
// whose query carries the target.
func cleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if strings.Contains(u.RawQuery, "url=") {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
