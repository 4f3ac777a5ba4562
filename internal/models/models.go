package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Region classifies a shop relative to the home jurisdiction.
type Region string

const (
	RegionHome         Region = "home"
	RegionCustomsUnion Region = "customs_union"
	RegionOther        Region = "other"
)

// ParseRegion accepts both the short config codes (SE, EU, NON_EU) and the canonical names.
func ParseRegion(s string) (Region, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SE", "HOME":
		return RegionHome, nil
	case "EU", "CUSTOMS_UNION":
		return RegionCustomsUnion, nil
	case "NON_EU", "OTHER":
		return RegionOther, nil
	}
	return "", fmt.Errorf("unknown region %q", s)
}

// DutyFree reports whether imports from this region skip customs duty and import VAT.
func (r Region) DutyFree() bool {
	return r == RegionHome || r == RegionCustomsUnion
}

type FeedConfig struct {
	URL     string            `json:"url"`
	Type    string            `json:"type"`
	Mapping map[string]string `json:"mapping,omitempty"`
}

type AffiliateConfig struct {
	Network     string `json:"network,omitempty"`
	ID          string `json:"id,omitempty"`
	URLTemplate string `json:"url_template,omitempty"`
}

type ShippingPolicy struct {
	FreeThreshold *decimal.Decimal `json:"free_threshold,omitempty"`
	BaseCost      decimal.Decimal  `json:"base_cost"`
	ShipsToHome   bool             `json:"ships_to_home"`
}

// ScrapeConfig holds the document-location rules for markup scrapers.
// Empty fields fall back to the scraper defaults.
type ScrapeConfig struct {
	SearchPath    string `json:"search_path,omitempty"`
	QueryParam    string `json:"query_param,omitempty"`
	CategoryParam string `json:"category_param,omitempty"`
	GenderParam   string `json:"gender_param,omitempty"`
	ProductPath   string `json:"product_path,omitempty"`

	ItemSelector  string `json:"item_selector,omitempty"`
	NameSelector  string `json:"name_selector,omitempty"`
	PriceSelector string `json:"price_selector,omitempty"`
	BrandSelector string `json:"brand_selector,omitempty"`
	ImageSelector string `json:"image_selector,omitempty"`
	LinkSelector  string `json:"link_selector,omitempty"`

	DetailNameSelector        string `json:"detail_name_selector,omitempty"`
	DetailPriceSelector       string `json:"detail_price_selector,omitempty"`
	DetailImageSelector       string `json:"detail_image_selector,omitempty"`
	DetailDescriptionSelector string `json:"detail_description_selector,omitempty"`

	WaitSelector string        `json:"wait_selector,omitempty"`
	Settle       time.Duration `json:"settle,omitempty"`
}

type RateLimit struct {
	PerSecond float64 `json:"per_second,omitempty"`
	Burst     int     `json:"burst,omitempty"`
}

// ShopConfig is the immutable per-shop descriptor. It is shared by pointer and never
// mutated after load.
type ShopConfig struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	URL         string  `json:"url"`
	Region      Region  `json:"region"`
	Currency    string  `json:"currency"`
	TrustScore  float64 `json:"trust_score"`

	// Adapter names an explicit implementation override, e.g. "zalando".
	Adapter string `json:"adapter,omitempty"`

	Feed      *FeedConfig      `json:"feed,omitempty"`
	Affiliate *AffiliateConfig `json:"affiliate,omitempty"`
	Shipping  ShippingPolicy   `json:"shipping"`
	Scrape    ScrapeConfig     `json:"scrape,omitempty"`
	RateLimit RateLimit        `json:"rate_limit,omitempty"`
}

// FeedType returns the declared feed format, or "" when no feed is configured.
func (c *ShopConfig) FeedType() string {
	if c.Feed == nil {
		return ""
	}
	return strings.ToLower(c.Feed.Type)
}

// CostBreakdown is attached to a product only when every field was computed.
type CostBreakdown struct {
	Shipping     decimal.Decimal `json:"shipping"`
	Duty         decimal.Decimal `json:"duty"`
	VAT          decimal.Decimal `json:"vat"`
	Total        decimal.Decimal `json:"total"`
	TotalHome    decimal.Decimal `json:"total_home"`
	HomeCurrency string          `json:"home_currency"`
}

type ProductResult struct {
	ShopID        string           `json:"shop_id"`
	ExternalID    string           `json:"external_id"`
	Name          string           `json:"name"`
	Brand         string           `json:"brand,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	Currency      string           `json:"currency"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`

	Category    string   `json:"category,omitempty"`
	Color       string   `json:"color,omitempty"`
	Material    string   `json:"material,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
	Description string   `json:"description,omitempty"`

	ProductURL   string `json:"product_url"`
	AffiliateURL string `json:"affiliate_url,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`

	InStock        bool           `json:"in_stock"`
	RelevanceScore float64        `json:"relevance_score"`
	Cost           *CostBreakdown `json:"cost,omitempty"`
	ScrapedAt      time.Time      `json:"scraped_at"`
}

// LandedOrPrice is the ranking tie-breaker: landed cost in home currency when known,
// list price otherwise.
func (p *ProductResult) LandedOrPrice() decimal.Decimal {
	if p.Cost != nil {
		return p.Cost.TotalHome
	}
	return p.Price
}

const DefaultLimit = 20

type SearchQuery struct {
	Query     string           `json:"query"`
	Category  string           `json:"category,omitempty"`
	Brand     string           `json:"brand,omitempty"`
	Color     string           `json:"color,omitempty"`
	MinPrice  *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice  *decimal.Decimal `json:"max_price,omitempty"`
	Size      string           `json:"size,omitempty"`
	Gender    string           `json:"gender,omitempty"`
	StyleTags []string         `json:"style_tags,omitempty"`
	Limit     int              `json:"limit,omitempty"`
}

// Terms returns the lowercase whitespace tokens longer than one character.
func (q SearchQuery) Terms() []string {
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(q.Query)) {
		if len([]rune(t)) > 1 {
			terms = append(terms, t)
		}
	}
	return terms
}

func (q SearchQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// WatchEntry is owned by the external store. The monitor reads it and writes back
// only the price and stock fields.
type WatchEntry struct {
	ID                string           `json:"id"`
	UserEmail         string           `json:"user_email"`
	ShopID            string           `json:"shop_id"`
	ProductID         string           `json:"product_id"`
	ProductName       string           `json:"product_name"`
	ProductURL        string           `json:"product_url"`
	Currency          string           `json:"currency"`
	PriceAtAdd        decimal.Decimal  `json:"price_at_add"`
	CurrentPrice      decimal.Decimal  `json:"current_price"`
	LowestPriceSeen   decimal.Decimal  `json:"lowest_price_seen"`
	TargetPrice       *decimal.Decimal `json:"target_price,omitempty"`
	NotifyAnyDrop     bool             `json:"notify_any_drop"`
	NotifyBackInStock bool             `json:"notify_back_in_stock"`
	InStock           bool             `json:"in_stock"`
	Active            bool             `json:"active"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// PriceCheckOutcome is produced once per entry per monitoring cycle.
type PriceCheckOutcome struct {
	WatchID       string          `json:"watch_id"`
	ShopID        string          `json:"shop_id"`
	ProductID     string          `json:"product_id"`
	OldPrice      decimal.Decimal `json:"old_price"`
	NewPrice      decimal.Decimal `json:"new_price"`
	Currency      string          `json:"currency"`
	DropAmount    decimal.Decimal `json:"drop_amount"`
	DropPercent   decimal.Decimal `json:"drop_percent"`
	Dropped       bool            `json:"dropped"`
	TargetReached bool            `json:"target_reached"`
	InStock       bool            `json:"in_stock"`
	WasInStock    bool            `json:"was_in_stock"`
	CheckedAt     time.Time       `json:"checked_at"`
}
