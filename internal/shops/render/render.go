// Package render implements the adapter for storefronts whose catalog only exists
// after client-side scripts run. Each adapter drives its own headless browser.
package render

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/andreasragnarsson/fashion-finder/internal/relevance"
	"github.com/andreasragnarsson/fashion-finder/internal/shops"
)

// Strategy adds page-settling rules to the markup rules of a shop.
type Strategy interface {
	shops.Strategy
	PageOptions() PageOptions
}

// Generic renders with the shop's configured selectors and the default consent probes.
type Generic struct {
	*shops.SelectorStrategy
}

func NewGeneric(cfg *models.ShopConfig) Generic {
	return Generic{SelectorStrategy: shops.NewSelectorStrategy(cfg)}
}

func (g Generic) PageOptions() PageOptions {
	rules := g.Rules()
	return PageOptions{
		WaitSelector: rules.WaitSelector,
		Settle:       rules.Settle,
		Consent:      DefaultConsent,
	}
}

type Adapter struct {
	cfg      *models.ShopConfig
	env      shops.Env
	strategy Strategy
	renderer Renderer
	now      func() time.Time
}

// New builds a rendered scraper. A nil strategy uses Generic; a nil renderer
// launches a private headless browser on first use.
func New(cfg *models.ShopConfig, env shops.Env, strategy Strategy, renderer Renderer) *Adapter {
	if strategy == nil {
		strategy = NewGeneric(cfg)
	}
	if renderer == nil {
		renderer = NewSession(env.BrowserBin, env.UserAgent)
	}
	return &Adapter{cfg: cfg, env: env, strategy: strategy, renderer: renderer, now: time.Now}
}

func (a *Adapter) ShopID() string      { return a.cfg.ID }
func (a *Adapter) Kind() platform.Kind { return platform.KindRender }

func (a *Adapter) Search(ctx context.Context, q models.SearchQuery) platform.Result[[]models.ProductResult] {
	doc, err := a.render(ctx, a.strategy.SearchURL(q))
	if err != nil {
		return platform.Fail[[]models.ProductResult](errx.Source(a.cfg.ID, "search", err))
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
	doc, err := a.render(ctx, productURL)
	if err != nil {
		return platform.Fail[*models.ProductResult](errx.Source(a.cfg.ID, "fetch product", err))
	}
	p, err := a.strategy.ParseDetail(doc, externalID, productURL)
	if err != nil {
		return platform.Fail[*models.ProductResult](err)
	}
	shops.Decorate(a.cfg, p, a.now())
	return platform.OK(p)
}

func (a *Adapter) BulkImport(context.Context) platform.Result[[]models.ProductResult] {
	return platform.OK[[]models.ProductResult](nil)
}

func (a *Adapter) CheckAvailability(ctx context.Context, externalID string) platform.Result[platform.Availability] {
	return platform.AvailabilityOf(a.FetchOne(ctx, externalID))
}

// Close releases the rendering session.
func (a *Adapter) Close() error {
	return a.renderer.Close()
}

func (a *Adapter) render(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if a.env.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.env.Timeout)
		defer cancel()
	}
	if a.env.Limiter != nil {
		if err := a.env.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	platform.ReportProgressf(ctx, "Rendering %s...", a.cfg.DisplayName)
	html, err := a.renderer.Render(ctx, pageURL, a.strategy.PageOptions())
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
