package shops

import (
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
)

// DefaultScrape holds the selector and path rules used when a shop leaves them unset.
var DefaultScrape = models.ScrapeConfig{
	SearchPath:    "/search",
	QueryParam:    "q",
	CategoryParam: "category",
	GenderParam:   "gender",
	ProductPath:   "/product/{id}",

	ItemSelector:  ".product-item",
	NameSelector:  ".product-name",
	PriceSelector: ".product-price",
	BrandSelector: ".brand",
	ImageSelector: "img",
	LinkSelector:  "a",

	DetailNameSelector:        "h1",
	DetailPriceSelector:       ".price",
	DetailImageSelector:       ".product-image img",
	DetailDescriptionSelector: ".product-description",
}

// WithDefaults returns sc with every empty rule taken from DefaultScrape.
func WithDefaults(sc models.ScrapeConfig) models.ScrapeConfig {
	d := DefaultScrape
	or := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	or(&sc.SearchPath, d.SearchPath)
	or(&sc.QueryParam, d.QueryParam)
	or(&sc.CategoryParam, d.CategoryParam)
	or(&sc.GenderParam, d.GenderParam)
	or(&sc.ProductPath, d.ProductPath)
	or(&sc.ItemSelector, d.ItemSelector)
	or(&sc.NameSelector, d.NameSelector)
	or(&sc.PriceSelector, d.PriceSelector)
	or(&sc.BrandSelector, d.BrandSelector)
	or(&sc.ImageSelector, d.ImageSelector)
	or(&sc.LinkSelector, d.LinkSelector)
	or(&sc.DetailNameSelector, d.DetailNameSelector)
	or(&sc.DetailPriceSelector, d.DetailPriceSelector)
	or(&sc.DetailImageSelector, d.DetailImageSelector)
	or(&sc.DetailDescriptionSelector, d.DetailDescriptionSelector)
	return sc
}

// SelectorStrategy is the configurable Strategy driven by a shop's scrape block.
type SelectorStrategy struct {
	cfg  *models.ShopConfig
	rule models.ScrapeConfig
}

func NewSelectorStrategy(cfg *models.ShopConfig) *SelectorStrategy {
	return &SelectorStrategy{cfg: cfg, rule: WithDefaults(cfg.Scrape)}
}

// Rules exposes the resolved rules, defaults applied.
func (s *SelectorStrategy) Rules() models.ScrapeConfig {
	return s.rule
}

func (s *SelectorStrategy) base() string {
	return strings.TrimRight(s.cfg.URL, "/")
}

func (s *SelectorStrategy) SearchURL(q models.SearchQuery) string {
	params := url.Values{}
	params.Set(s.rule.QueryParam, q.Query)
	if q.Category != "" {
		params.Set(s.rule.CategoryParam, q.Category)
	}
	if q.Gender != "" {
		params.Set(s.rule.GenderParam, q.Gender)
	}
	return s.base() + s.rule.SearchPath + "?" + params.Encode()
}

func (s *SelectorStrategy) ProductURL(externalID string) string {
	return s.base() + strings.ReplaceAll(s.rule.ProductPath, "{id}", url.PathEscape(externalID))
}

func (s *SelectorStrategy) ParseSearch(doc *goquery.Document) ([]models.ProductResult, []error) {
	var (
		products []models.ProductResult
		errs     []error
	)
	doc.Find(s.rule.ItemSelector).Each(func(i int, item *goquery.Selection) {
		p, err := s.parseTile(item)
		if err != nil {
			errs = append(errs, errx.Record(s.cfg.ID, "parse tile", err))
			return
		}
		products = append(products, p)
	})
	return products, errs
}

var (
	errNoName  = errors.New("missing name")
	errNoPrice = errors.New("missing or unparseable price")
	errNoID    = errors.New("missing product identity")
)

func (s *SelectorStrategy) parseTile(item *goquery.Selection) (models.ProductResult, error) {
	name := Text(item.Find(s.rule.NameSelector))
	if name == "" {
		return models.ProductResult{}, errNoName
	}
	price, ok := ParsePrice(Text(item.Find(s.rule.PriceSelector)))
	if !ok || !price.IsPositive() {
		return models.ProductResult{}, errNoPrice
	}

	var link string
	if href, ok := item.Find(s.rule.LinkSelector).First().Attr("href"); ok {
		link = Absolute(s.cfg.URL, href)
	} else if href, ok := item.Attr("href"); ok {
		link = Absolute(s.cfg.URL, href)
	}
	id := IDFromURL(link)
	if id == "" {
		return models.ProductResult{}, errNoID
	}

	return models.ProductResult{
		ExternalID: id,
		Name:       name,
		Brand:      Text(item.Find(s.rule.BrandSelector)),
		Price:      price,
		ProductURL: link,
		ImageURL:   Absolute(s.cfg.URL, ImageSrc(item.Find(s.rule.ImageSelector).First())),
		InStock:    true,
	}, nil
}

// ParseDetail reads the configured detail selectors and falls back to JSON-LD.
func (s *SelectorStrategy) ParseDetail(doc *goquery.Document, externalID, productURL string) (*models.ProductResult, error) {
	name := Text(doc.Find(s.rule.DetailNameSelector))
	price, ok := ParsePrice(Text(doc.Find(s.rule.DetailPriceSelector)))
	if name != "" && ok && price.IsPositive() {
		desc, _ := doc.Find(s.rule.DetailDescriptionSelector).First().Html()
		return &models.ProductResult{
			ExternalID:  externalID,
			Name:        name,
			Price:       price,
			Description: CleanText(desc),
			ProductURL:  productURL,
			ImageURL:    Absolute(s.cfg.URL, ImageSrc(doc.Find(s.rule.DetailImageSelector).First())),
			InStock:     true,
		}, nil
	}
	return DetailFromJSONLD(doc, s.cfg.ID, externalID, productURL)
}

// DetailFromJSONLD returns the first Product block in the document, keyed to the
// requested identity.
func DetailFromJSONLD(doc *goquery.Document, shopID, externalID, productURL string) (*models.ProductResult, error) {
	raw, err := doc.Html()
	if err != nil {
		return nil, errx.Source(shopID, "render document", err)
	}
	products, err := ExtractJSONLD(raw)
	if err != nil {
		return nil, errx.Source(shopID, "json-ld", err)
	}
	if len(products) == 0 {
		return nil, errx.NotFound(shopID, "product "+externalID)
	}
	p := products[0]
	p.ExternalID = externalID
	if p.ProductURL == "" {
		p.ProductURL = productURL
	}
	p.ImageURL = Absolute(productURL, p.ImageURL)
	return &p, nil
}
