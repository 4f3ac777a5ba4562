// Package scrape implements the static-markup adapter: one rate-limited page fetch
// per search or detail lookup, with fields located by a per-shop Strategy.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/httputil"
	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/andreasragnarsson/fashion-finder/internal/relevance"
	"github.com/andreasragnarsson/fashion-finder/internal/shops"
)

type Adapter struct {
	cfg      *models.ShopConfig
	env      shops.Env
	strategy shops.Strategy
	now      func() time.Time
}

// New builds a scraper. A nil strategy uses the shop's configured selectors.
func New(cfg *models.ShopConfig, env shops.Env, strategy shops.Strategy) *Adapter {
	if strategy == nil {
		strategy = shops.NewSelectorStrategy(cfg)
	}
	return &Adapter{cfg: cfg, env: env, strategy: strategy, now: time.Now}
}

func (a *Adapter) ShopID() string      { return a.cfg.ID }
func (a *Adapter) Kind() platform.Kind { return platform.KindScrape }

func (a *Adapter) Search(ctx context.Context, q models.SearchQuery) platform.Result[[]models.ProductResult] {
	searchURL := a.strategy.SearchURL(q)
	doc, status, err := a.fetch(ctx, searchURL)
	if err != nil {
		return platform.Fail[[]models.ProductResult](errx.Source(a.cfg.ID, "search", err))
	}
	if status != http.StatusOK {
		return platform.Fail[[]models.ProductResult](errx.Source(a.cfg.ID, "search", fmt.Errorf("status %d", status)))
	}

	products, recordErrs := a.strategy.ParseSearch(doc)
	if len(recordErrs) > 0 {
		logx.Shop(a.cfg.ID).Debug().Int("skipped", len(recordErrs)).Err(recordErrs[0]).Msg("tiles skipped")
	}
	now := a.now()
	for i := range products {
		shops.Decorate(a.cfg, &products[i], now)
	}
	return platform.OK(relevance.Apply(q, products))
}

func (a *Adapter) FetchOne(ctx context.Context, externalID string) platform.Result[*models.ProductResult] {
	productURL := a.strategy.ProductURL(externalID)
	doc, status, err := a.fetch(ctx, productURL)
	if err != nil {
		return platform.Fail[*models.ProductResult](errx.Source(a.cfg.ID, "fetch product", err))
	}
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return platform.Fail[*models.ProductResult](errx.NotFound(a.cfg.ID, "product "+externalID))
	case status != http.StatusOK:
		return platform.Fail[*models.ProductResult](errx.Source(a.cfg.ID, "fetch product", fmt.Errorf("status %d", status)))
	}

	p, err := a.strategy.ParseDetail(doc, externalID, productURL)
	if err != nil {
		return platform.Fail[*models.ProductResult](err)
	}
	shops.Decorate(a.cfg, p, a.now())
	return platform.OK(p)
}

// BulkImport is empty for scrapers; storefronts expose no catalog dump.
func (a *Adapter) BulkImport(context.Context) platform.Result[[]models.ProductResult] {
	return platform.OK[[]models.ProductResult](nil)
}

func (a *Adapter) CheckAvailability(ctx context.Context, externalID string) platform.Result[platform.Availability] {
	return platform.AvailabilityOf(a.FetchOne(ctx, externalID))
}

func (a *Adapter) fetch(ctx context.Context, pageURL string) (*goquery.Document, int, error) {
	if a.env.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.env.Timeout)
		defer cancel()
	}

	platform.ReportProgressf(ctx, "Fetching %s...", a.cfg.DisplayName)
	body, status, err := httputil.Get(ctx, a.env.Client, pageURL, httputil.BrowserHeaders(), 1)
	if err != nil {
		return nil, 0, err
	}
	if status != http.StatusOK {
		return nil, status, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, status, fmt.Errorf("parse document: %w", err)
	}
	return doc, status, nil
}
