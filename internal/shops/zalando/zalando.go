// Package zalando carries the URL routing and tile heuristics for zalando.se. It
// plugs into the static scraper and changes nothing about its failure handling.
package zalando

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/shops"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://www.zalando.se"

var (
	tileSelectors  = []string{`article[class*="product"]`, `div[class*="catalog"] article`, `[data-testid*="product"]`}
	nameSelectors  = []string{`[class*="name"]`, `[class*="title"]`, "h3", "h2", `[data-testid*="name"]`, `[data-testid*="title"]`}
	brandSelectors = []string{`[class*="brand"]`, `[data-testid*="brand"]`}
	priceSelectors = []string{`[class*="price"]`, `[data-testid*="price"]`, `span[class*="amount"]`, `p[class*="price"]`}

	skuPattern = regexp.MustCompile(`\.([A-Z0-9]{10,})\.`)
)

type Strategy struct {
	cfg  *models.ShopConfig
	base string
}

func NewStrategy(cfg *models.ShopConfig) *Strategy {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Strategy{cfg: cfg, base: base}
}

// Section maps a query gender onto the storefront department.
func Section(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "men", "man", "herr":
		return "herrklader"
	case "kids", "barn", "children":
		return "barnklader"
	default:
		return "damklader"
	}
}

func (s *Strategy) SearchURL(q models.SearchQuery) string {
	return s.base + "/" + Section(q.Gender) + "/?" + url.Values{"q": {q.Query}}.Encode()
}

func (s *Strategy) ProductURL(externalID string) string {
	return s.base + "/" + url.PathEscape(externalID) + ".html"
}

// ExternalID pulls the article code out of a product URL.
func ExternalID(link string) string {
	if m := skuPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	trimmed := strings.TrimRight(link, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSuffix(trimmed, ".html")
}

var (
	errNoLink  = errors.New("tile has no product link")
	errNoName  = errors.New("tile has no name")
	errNoPrice = errors.New("tile has no price")
)

func (s *Strategy) ParseSearch(doc *goquery.Document) ([]models.ProductResult, []error) {
	tiles := findTiles(doc)

	var (
		products []models.ProductResult
		errs     []error
	)
	tiles.Each(func(_ int, tile *goquery.Selection) {
		p, err := s.parseTile(tile)
		if err != nil {
			errs = append(errs, errx.Record(s.cfg.ID, "parse tile", err))
			return
		}
		products = append(products, p)
	})
	return products, errs
}

func findTiles(doc *goquery.Document) *goquery.Selection {
	for _, sel := range tileSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return doc.Find(`a[href*="/p/"]`)
}

func (s *Strategy) parseTile(tile *goquery.Selection) (models.ProductResult, error) {
	var link string
	if goquery.NodeName(tile) == "a" {
		link, _ = tile.Attr("href")
	}
	if link == "" {
		a := tile.Find(`a[href*="/p/"]`).First()
		if a.Length() == 0 {
			a = tile.Find("a[href]").First()
		}
		link, _ = a.Attr("href")
	}
	if link == "" {
		return models.ProductResult{}, errNoLink
	}
	link = shops.Absolute(s.base, link)

	id := ExternalID(link)
	if id == "" {
		return models.ProductResult{}, errNoLink
	}

	name := firstText(tile, nameSelectors)
	if name == "" {
		name = truncate(shops.Text(tile), 100)
	}
	if name == "" {
		return models.ProductResult{}, errNoName
	}

	price, ok := firstPrice(tile)
	if !ok {
		return models.ProductResult{}, errNoPrice
	}

	var image string
	if img := tile.Find("img[src], img[data-src]").First(); img.Length() > 0 {
		image = shops.Absolute(s.base, shops.ImageSrc(img))
	}

	return models.ProductResult{
		ExternalID: id,
		Name:       name,
		Brand:      firstText(tile, brandSelectors),
		Price:      price,
		ProductURL: link,
		ImageURL:   image,
		InStock:    true,
	}, nil
}

func (s *Strategy) ParseDetail(doc *goquery.Document, externalID, productURL string) (*models.ProductResult, error) {
	return shops.DetailFromJSONLD(doc, s.cfg.ID, externalID, productURL)
}

func firstText(tile *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if t := shops.Text(tile.Find(sel)); t != "" {
			return t
		}
	}
	return ""
}

// firstPrice returns the first positive price among the candidate elements; a
// discounted tile lists the current price before the struck-through one.
func firstPrice(tile *goquery.Selection) (price decimal.Decimal, ok bool) {
	for _, sel := range priceSelectors {
		var found bool
		tile.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			d, parsed := shops.ParsePrice(shops.Text(el))
			if parsed && d.IsPositive() {
				price, found = d, true
				return false
			}
			return true
		})
		if found {
			return price, true
		}
	}
	return price, false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
