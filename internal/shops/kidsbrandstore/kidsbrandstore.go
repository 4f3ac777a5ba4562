// Package kidsbrandstore holds the tile heuristics for kidsbrandstore.se, a Next.js
// storefront that only renders its catalog client-side.
package kidsbrandstore

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/shops"
	"github.com/andreasragnarsson/fashion-finder/internal/shops/render"
)

const DefaultBaseURL = "https://www.kidsbrandstore.se"

// Brands is the lexicon used to split tile text into brand and name.
var Brands = []string{
	"Nike", "Adidas", "Adidas Originals", "Adidas Performance",
	"Jordan", "Puma", "New Balance", "Reebok", "Converse", "Vans",
	"Lyle & Scott", "Ralph Lauren", "Tommy Hilfiger", "Calvin Klein",
	"The North Face", "Moncler", "Burberry", "Gucci", "Gant",
	"Peak Performance", "Helly Hansen", "Patagonia", "Columbia",
	"Levi's", "Lee", "Diesel", "Boss", "Lacoste", "Kenzo",
	"Stone Island", "CP Company", "Dsquared2", "Moschino",
}

var (
	productPath = regexp.MustCompile(`/products/([^/?]+)`)
	trailingID  = regexp.MustCompile(`-\d+$`)
	nextImage   = regexp.MustCompile(`url=([^&]+)`)

	errNoPrice = errors.New("tile has no price")
	errNoName  = errors.New("tile has no name")
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

func (s *Strategy) SearchURL(q models.SearchQuery) string {
	return s.base + "/sv/search?" + url.Values{"q": {q.Query}}.Encode()
}

func (s *Strategy) ProductURL(externalID string) string {
	return s.base + "/sv/products/" + url.PathEscape(externalID)
}

func (s *Strategy) PageOptions() render.PageOptions {
	return render.PageOptions{
		WaitSelector: `a[href*="/products/"]`,
		WaitTimeout:  30 * time.Second,
		Settle:       5 * time.Second,
		Consent:      []render.Probe{{Selector: "#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll"}},
	}
}

// ParseSearch emits one product per product link. A product's images are tried in
// page order until one yields a complete tile; products that never do are reported once.
func (s *Strategy) ParseSearch(doc *goquery.Document) ([]models.ProductResult, []error) {
	var (
		products []models.ProductResult
		order    []string
	)
	done := map[string]bool{}
	failed := map[string]error{}
	doc.Find(`img[src*="kidsbrandstore.com"], img[src*="/_next/image"]`).Each(func(_ int, img *goquery.Selection) {
		href, _ := img.Closest("a").Attr("href")
		if !strings.Contains(href, "/products/") {
			return
		}
		id := ProductID(href)
		if done[id] {
			return
		}

		p, err := s.parseTile(img, href)
		if err != nil {
			if _, ok := failed[id]; !ok {
				order = append(order, id)
			}
			failed[id] = err
			return
		}
		done[id] = true
		products = append(products, p)
	})

	var errs []error
	for _, id := range order {
		if !done[id] {
			errs = append(errs, errx.Record(s.cfg.ID, "parse tile "+id, failed[id]))
		}
	}
	return products, errs
}

func (s *Strategy) parseTile(img *goquery.Selection, href string) (models.ProductResult, error) {
	src, _ := img.Attr("src")
	alt, _ := img.Attr("alt")

	p := models.ProductResult{
		ExternalID: ProductID(href),
		Name:       strings.TrimSpace(alt),
		ProductURL: shops.Absolute(s.base, href),
		ImageURL:   shops.Absolute(s.base, CleanImageURL(src)),
		InStock:    true,
		Gender:     "kids",
	}
	if p.Name == "" {
		p.Name = NameFromSlug(href)
	}

	if container := img.Closest(`[class*="group"]`); container.Length() > 0 {
		parts := render.Segment(container.Text(), Brands)
		p.Brand = parts.Brand
		if parts.Name != "" {
			p.Name = parts.Name
		}
		if parts.Price != nil {
			p.Price = *parts.Price
		}
	}

	if p.Name == "" {
		return models.ProductResult{}, errNoName
	}
	if !p.Price.IsPositive() {
		return models.ProductResult{}, errNoPrice
	}
	return p, nil
}

// ParseDetail reads the product's JSON-LD and, when it lists no sizes, the size picker.
func (s *Strategy) ParseDetail(doc *goquery.Document, externalID, productURL string) (*models.ProductResult, error) {
	p, err := shops.DetailFromJSONLD(doc, s.cfg.ID, externalID, productURL)
	if err != nil {
		return nil, err
	}
	p.Gender = "kids"
	if len(p.Sizes) == 0 {
		labels := doc.Find(`[class*="size"] button, [class*="size"] option`).Map(func(_ int, s *goquery.Selection) string {
			return s.Text()
		})
		p.Sizes = shops.SizesFromText(strings.Join(labels, " "))
	}
	return p, nil
}

// ProductID extracts the slug from /products/crew-neck-sweatshirt-1308943.
func ProductID(href string) string {
	if m := productPath.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

// NameFromSlug turns crew-neck-sweatshirt-1308943 into "Crew Neck Sweatshirt".
func NameFromSlug(href string) string {
	slug := trailingID.ReplaceAllString(ProductID(href), "")
	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// CleanImageURL unwraps the original asset from a Next.js image optimizer URL.
func CleanImageURL(src string) string {
	if !strings.Contains(src, "/_next/image") {
		return src
	}
	if m := nextImage.FindStringSubmatch(src); m != nil {
		if u, err := url.QueryUnescape(m[1]); err == nil {
			return u
		}
	}
	return src
}
