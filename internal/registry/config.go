package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultCurrency   = "SEK"
	defaultTrustScore = 0.8
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// shopDoc is the on-disk shape of one shop. It is converted to models.ShopConfig
// after validation.
type shopDoc struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	URL         string   `yaml:"url"`
	Region      string   `yaml:"region"`
	Currency    string   `yaml:"currency"`
	TrustScore  *float64 `yaml:"trust_score"`
	Adapter     string   `yaml:"adapter"`

	Feed *struct {
		URL     string            `yaml:"url"`
		Type    string            `yaml:"type"`
		Mapping map[string]string `yaml:"mapping"`
	} `yaml:"feed"`

	Affiliate *struct {
		Network     string `yaml:"network"`
		ID          string `yaml:"id"`
		URLTemplate string `yaml:"url_template"`
	} `yaml:"affiliate"`

	Shipping struct {
		FreeThreshold *decimal.Decimal `yaml:"free_threshold"`
		BaseCost      decimal.Decimal  `yaml:"base_cost"`
		ShipsToHome   *bool            `yaml:"ships_to_home"`
	} `yaml:"shipping"`

	Scrape struct {
		SearchPath    string `yaml:"search_path"`
		QueryParam    string `yaml:"query_param"`
		CategoryParam string `yaml:"category_param"`
		GenderParam   string `yaml:"gender_param"`
		ProductPath   string `yaml:"product_path"`

		ItemSelector  string `yaml:"item_selector"`
		NameSelector  string `yaml:"name_selector"`
		PriceSelector string `yaml:"price_selector"`
		BrandSelector string `yaml:"brand_selector"`
		ImageSelector string `yaml:"image_selector"`
		LinkSelector  string `yaml:"link_selector"`

		DetailNameSelector        string `yaml:"detail_name_selector"`
		DetailPriceSelector       string `yaml:"detail_price_selector"`
		DetailImageSelector       string `yaml:"detail_image_selector"`
		DetailDescriptionSelector string `yaml:"detail_description_selector"`

		WaitSelector string `yaml:"wait_selector"`
		SettleMS     int    `yaml:"settle_ms"`
	} `yaml:"scrape"`

	RateLimit struct {
		PerSecond float64 `yaml:"per_second"`
		Burst     int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

func (d *shopDoc) toConfig() (*models.ShopConfig, error) {
	var missing []string
	if strings.TrimSpace(d.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(d.URL) == "" {
		missing = append(missing, "url")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	region := models.RegionCustomsUnion
	if d.Region != "" {
		r, err := models.ParseRegion(d.Region)
		if err != nil {
			return nil, err
		}
		region = r
	}

	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if !currencyCode.MatchString(currency) {
		return nil, fmt.Errorf("invalid currency %q", d.Currency)
	}

	trust := defaultTrustScore
	if d.TrustScore != nil {
		trust = *d.TrustScore
	}
	if trust < 0 || trust > 1 {
		return nil, fmt.Errorf("trust_score %v outside [0,1]", trust)
	}

	cfg := &models.ShopConfig{
		ID:          d.ID,
		Name:        d.Name,
		DisplayName: d.DisplayName,
		URL:         d.URL,
		Region:      region,
		Currency:    currency,
		TrustScore:  trust,
		Adapter:     strings.ToLower(d.Adapter),
		Shipping: models.ShippingPolicy{
			FreeThreshold: d.Shipping.FreeThreshold,
			BaseCost:      d.Shipping.BaseCost,
			ShipsToHome:   d.Shipping.ShipsToHome == nil || *d.Shipping.ShipsToHome,
		},
		Scrape: models.ScrapeConfig{
			SearchPath:                d.Scrape.SearchPath,
			QueryParam:                d.Scrape.QueryParam,
			CategoryParam:             d.Scrape.CategoryParam,
			GenderParam:               d.Scrape.GenderParam,
			ProductPath:               d.Scrape.ProductPath,
			ItemSelector:              d.Scrape.ItemSelector,
			NameSelector:              d.Scrape.NameSelector,
			PriceSelector:             d.Scrape.PriceSelector,
			BrandSelector:             d.Scrape.BrandSelector,
			ImageSelector:             d.Scrape.ImageSelector,
			LinkSelector:              d.Scrape.LinkSelector,
			DetailNameSelector:        d.Scrape.DetailNameSelector,
			DetailPriceSelector:       d.Scrape.DetailPriceSelector,
			DetailImageSelector:       d.Scrape.DetailImageSelector,
			DetailDescriptionSelector: d.Scrape.DetailDescriptionSelector,
			WaitSelector:              d.Scrape.WaitSelector,
			Settle:                    time.Duration(d.Scrape.SettleMS) * time.Millisecond,
		},
		RateLimit: models.RateLimit{
			PerSecond: d.RateLimit.PerSecond,
			Burst:     d.RateLimit.Burst,
		},
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = cfg.Name
	}
	if d.Feed != nil {
		cfg.Feed = &models.FeedConfig{URL: d.Feed.URL, Type: d.Feed.Type, Mapping: d.Feed.Mapping}
	}
	if d.Affiliate != nil {
		cfg.Affiliate = &models.AffiliateConfig{
			Network:     d.Affiliate.Network,
			ID:          d.Affiliate.ID,
			URLTemplate: d.Affiliate.URLTemplate,
		}
	}
	return cfg, nil
}

// ParseConfigs decodes every YAML document in data. Each document that fails to
// decode or validate yields one configuration error and is left out of the result.
func ParseConfigs(source string, data []byte) ([]*models.ShopConfig, []error) {
	var (
		configs []*models.ShopConfig
		errs    []error
	)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for i := 0; ; i++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// a syntax error leaves the decoder unusable for the rest of the file
			errs = append(errs, errx.Configuration(docName(source, i), "decode", err))
			break
		}
		if isEmpty(&node) {
			continue
		}

		var doc shopDoc
		if err := node.Decode(&doc); err != nil {
			errs = append(errs, errx.Configuration(docName(source, i), "decode", err))
			continue
		}
		cfg, err := doc.toConfig()
		if err != nil {
			shop := doc.ID
			if shop == "" {
				shop = docName(source, i)
			}
			errs = append(errs, errx.Configuration(shop, "validate", err))
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, errs
}

// ReadConfigs loads a single YAML file or every *.yaml / *.yml file of a directory,
// in lexical file order.
func ReadConfigs(path string) ([]*models.ShopConfig, []error, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat shop configs: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files = nil
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(path, pattern))
			if err != nil {
				return nil, nil, fmt.Errorf("glob shop configs: %w", err)
			}
			files = append(files, matches...)
		}
		sort.Strings(files)
	}

	var (
		configs []*models.ShopConfig
		errs    []error
	)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			errs = append(errs, errx.Configuration(filepath.Base(f), "read", err))
			continue
		}
		c, e := ParseConfigs(filepath.Base(f), data)
		configs = append(configs, c...)
		errs = append(errs, e...)
	}
	return configs, errs, nil
}

func docName(source string, i int) string {
	return fmt.Sprintf("%s#%d", source, i)
}

func isEmpty(n *yaml.Node) bool {
	if n.Kind == 0 {
		return true
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return true
		}
		n = n.Content[0]
	}
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
