package shops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

// ExtractJSONLD parses HTML and returns the schema.org Product blocks found in
// application/ld+json script tags. Products without a name or price are skipped.
func ExtractJSONLD(htmlContent string) ([]models.ProductResult, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var products []models.ProductResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" && isJSONLD(n) && n.FirstChild != nil {
			products = append(products, parseJSONLD([]byte(n.FirstChild.Data))...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return products, nil
}

func isJSONLD(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "type" && strings.EqualFold(strings.TrimSpace(attr.Val), "application/ld+json") {
			return true
		}
	}
	return false
}

// ldTypes accepts "@type" as a string or an array of strings.
type ldTypes []string

func (t *ldTypes) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*t = ldTypes{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*t = many
	return nil
}

func (t ldTypes) has(name string) bool {
	for _, v := range t {
		if v == name {
			return true
		}
	}
	return false
}

type ldItem struct {
	Type            ldTypes           `json:"@type"`
	Graph           []json.RawMessage `json:"@graph"`
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	SKU             string            `json:"sku"`
	ProductID       string            `json:"productID"`
	Image           json.RawMessage   `json:"image"`
	Description     string            `json:"description"`
	Brand           json.RawMessage   `json:"brand"`
	Color           string            `json:"color"`
	Category        string            `json:"category"`
	Material        string            `json:"material"`
	Offers          json.RawMessage   `json:"offers"`
	ItemListElement []ldListElement   `json:"itemListElement"`
}

type ldListElement struct {
	Item *ldItem `json:"item"`
}

type ldOffer struct {
	Price         json.RawMessage `json:"price"`
	LowPrice      json.RawMessage `json:"lowPrice"`
	PriceCurrency string          `json:"priceCurrency"`
	Availability  string          `json:"availability"`
}

func parseJSONLD(data []byte) []models.ProductResult {
	data = bytes.TrimSpace(data)

	var items []ldItem
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
	} else {
		var item ldItem
		if err := json.Unmarshal(data, &item); err != nil {
			return nil
		}
		items = []ldItem{item}
	}

	var out []models.ProductResult
	for i := range items {
		out = append(out, collect(&items[i])...)
	}
	return out
}

func collect(item *ldItem) []models.ProductResult {
	var out []models.ProductResult
	if p, ok := toProduct(item); ok {
		out = append(out, p)
	}
	for _, el := range item.ItemListElement {
		if el.Item != nil {
			out = append(out, collect(el.Item)...)
		}
	}
	for _, raw := range item.Graph {
		out = append(out, parseJSONLD(raw)...)
	}
	return out
}

func toProduct(item *ldItem) (models.ProductResult, bool) {
	if !item.Type.has("Product") || strings.TrimSpace(item.Name) == "" {
		return models.ProductResult{}, false
	}
	offer, ok := firstOffer(item.Offers)
	if !ok {
		return models.ProductResult{}, false
	}
	price, ok := rawPrice(offer.Price)
	if !ok {
		if price, ok = rawPrice(offer.LowPrice); !ok {
			return models.ProductResult{}, false
		}
	}

	p := models.ProductResult{
		Name:        strings.TrimSpace(item.Name),
		Brand:       brandName(item.Brand),
		Price:       price,
		Currency:    strings.ToUpper(offer.PriceCurrency),
		Category:    item.Category,
		Color:       item.Color,
		Material:    item.Material,
		Description: CleanText(item.Description),
		ProductURL:  item.URL,
		ImageURL:    firstImage(item.Image),
		InStock:     inStock(offer.Availability),
	}
	switch {
	case item.SKU != "":
		p.ExternalID = item.SKU
	case item.ProductID != "":
		p.ExternalID = item.ProductID
	default:
		p.ExternalID = IDFromURL(item.URL)
	}
	return p, true
}

func firstOffer(raw json.RawMessage) (ldOffer, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ldOffer{}, false
	}
	if raw[0] == '[' {
		var offers []ldOffer
		if err := json.Unmarshal(raw, &offers); err != nil || len(offers) == 0 {
			return ldOffer{}, false
		}
		return offers[0], true
	}
	var offer ldOffer
	if err := json.Unmarshal(raw, &offer); err != nil {
		return ldOffer{}, false
	}
	return offer, true
}

func rawPrice(raw json.RawMessage) (decimal.Decimal, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return decimal.Zero, false
	}
	return ParsePrice(s)
}

func brandName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

func firstImage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URL
	}
	return ""
}

func inStock(availability string) bool {
	if availability == "" {
		return true
	}
	a := strings.ToLower(availability)
	return !strings.Contains(a, "outofstock") && !strings.Contains(a, "soldout") && !strings.Contains(a, "discontinued")
}
