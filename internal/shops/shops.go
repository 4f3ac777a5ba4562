// Package shops holds the pieces shared by every shop adapter: the per-adapter
// environment, the markup strategy contract and the field normalisers used when
// turning storefront documents and catalog rows into products.
package shops

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"golang.org/x/time/rate"
)

// Env is the outbound environment handed to one adapter instance. Client already
// routes through a transport that waits on Limiter; adapters that bypass the client
// (headless rendering) wait on Limiter themselves.
type Env struct {
	Client     *http.Client
	Limiter    *rate.Limiter
	Timeout    time.Duration
	BrowserBin string
	UserAgent  string
}

// Strategy carries the per-shop URL construction and field extraction rules for
// markup-based adapters. Implementations never touch the network.
type Strategy interface {
	SearchURL(q models.SearchQuery) string
	ProductURL(externalID string) string
	// ParseSearch returns the well-formed tiles and one error per discarded tile.
	ParseSearch(doc *goquery.Document) ([]models.ProductResult, []error)
	// ParseDetail returns errx.ErrNotFound when the page carries no product.
	ParseDetail(doc *goquery.Document, externalID, productURL string) (*models.ProductResult, error)
}

// Decorate fills the fields every adapter sets the same way.
func Decorate(cfg *models.ShopConfig, p *models.ProductResult, now time.Time) {
	p.ShopID = cfg.ID
	if p.Currency == "" {
		p.Currency = cfg.Currency
	}
	if p.AffiliateURL == "" {
		p.AffiliateURL = AffiliateURL(cfg, p.ProductURL)
	}
	p.ScrapedAt = now
}

// AffiliateURL expands the shop's url_template. {url} receives the query-escaped
// product URL. Without a template or product URL the result is empty.
func AffiliateURL(cfg *models.ShopConfig, productURL string) string {
	if cfg == nil || cfg.Affiliate == nil || cfg.Affiliate.URLTemplate == "" || productURL == "" {
		return ""
	}
	r := strings.NewReplacer(
		"{url}", url.QueryEscape(productURL),
		"{affiliate_id}", cfg.Affiliate.ID,
	)
	return r.Replace(cfg.Affiliate.URLTemplate)
}

// Absolute resolves ref against base. Protocol-relative refs get https.
func Absolute(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// Text returns the trimmed text of the first matched node with whitespace collapsed.
func Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(sel.First().Text()), " ")
}

// ImageSrc prefers src and falls back to lazy-loading attributes.
func ImageSrc(sel *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
