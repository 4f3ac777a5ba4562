// Package search fans a query out to the shop adapters, enriches the candidates
// with landed cost and ranks them.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/observability"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"golang.org/x/sync/errgroup"
)

// Source resolves the adapters and configurations of a search.
type Source interface {
	// Subset returns the adapters of the given shops, or all of them for an empty list.
	Subset(ids []string) []platform.Adapter
	// Adapter fails with errx.ErrNotFound for an unknown shop.
	Adapter(id string) (platform.Adapter, error)
	Config(id string) (*models.ShopConfig, bool)
}

type CostCalculator interface {
	Calculate(ctx context.Context, p models.ProductResult, shop *models.ShopConfig) (*models.CostBreakdown, error)
}

// Request narrows one search to a shop subset and asks for landed cost.
type Request struct {
	Query       models.SearchQuery
	Shops       []string
	IncludeCost bool
	// Limit truncates the merged ranking. Zero keeps every candidate.
	Limit int
}

type Option func(*Orchestrator)

func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithConcurrency bounds the adapters searched at once and the candidates costed at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithAdapterTimeout bounds each adapter search independently of the caller's context.
func WithAdapterTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.adapterTimeout = d }
}

type Orchestrator struct {
	source         Source
	calc           CostCalculator
	metrics        *observability.Metrics
	maxConcurrent  int
	adapterTimeout time.Duration
}

func New(source Source, calc CostCalculator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:         source,
		calc:           calc,
		maxConcurrent:  8,
		adapterTimeout: 45 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search queries every selected adapter concurrently. A failing, panicking or slow
// adapter contributes nothing; it never cancels its siblings.
func (o *Orchestrator) Search(ctx context.Context, req Request) []models.ProductResult {
	start := time.Now()
	defer func() { o.metrics.SearchDuration(time.Since(start)) }()

	adapters := o.source.Subset(req.Shops)
	platform.ReportProgressf(ctx, "Searching %d shops...", len(adapters))

	// no WithContext: one adapter's failure must not cancel the others
	var g errgroup.Group
	g.SetLimit(o.maxConcurrent)

	results := make([][]models.ProductResult, len(adapters))
	for i, a := range adapters {
		g.Go(func() error {
			results[i] = o.searchOne(ctx, a, req.Query)
			return nil
		})
	}
	_ = g.Wait()

	candidates := flatten(results)
	if req.IncludeCost && o.calc != nil {
		o.enrich(ctx, candidates)
	}
	Rank(candidates)

	if req.Limit > 0 && len(candidates) > req.Limit {
		candidates = candidates[:req.Limit]
	}
	platform.ReportProgressf(ctx, "Found %d products", len(candidates))
	return candidates
}

func (o *Orchestrator) searchOne(ctx context.Context, a platform.Adapter, q models.SearchQuery) []models.ProductResult {
	if o.adapterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.adapterTimeout)
		defer cancel()
	}

	res := platform.Guard(func() platform.Result[[]models.ProductResult] {
		return a.Search(ctx, q)
	})
	o.metrics.AdapterSearch(a.ShopID(), res.Ok())
	if !res.Ok() {
		logx.Shop(a.ShopID()).Warn().Err(res.Err).Msg("search failed")
		return nil
	}
	return res.Value
}

// Detail fetches one product from its shop, optionally with landed cost.
func (o *Orchestrator) Detail(ctx context.Context, shopID, externalID string, includeCost bool) (*models.ProductResult, error) {
	a, err := o.source.Adapter(shopID)
	if err != nil {
		return nil, err
	}
	if o.adapterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.adapterTimeout)
		defer cancel()
	}
	p, err := platform.Guard(func() platform.Result[*models.ProductResult] {
		return a.FetchOne(ctx, externalID)
	}).Unwrap()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errx.NotFound(shopID, "product "+externalID)
	}
	if includeCost && o.calc != nil {
		if cost, err := o.costOf(ctx, *p); err == nil {
			p.Cost = cost
		}
	}
	return p, nil
}

// enrich attaches a cost breakdown to every candidate it can. A failed calculation
// leaves that candidate without cost.
func (o *Orchestrator) enrich(ctx context.Context, candidates []models.ProductResult) {
	var g errgroup.Group
	g.SetLimit(o.maxConcurrent)

	for i := range candidates {
		g.Go(func() error {
			p := &candidates[i]
			cost, err := o.costOf(ctx, *p)
			if err != nil {
				logx.Shop(p.ShopID).Debug().Err(err).Str("product", p.ExternalID).Msg("cost skipped")
				return nil
			}
			p.Cost = cost
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) costOf(ctx context.Context, p models.ProductResult) (cost *models.CostBreakdown, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cost calculation panicked: %v", r)
		}
	}()
	shop, ok := o.source.Config(p.ShopID)
	if !ok {
		return nil, fmt.Errorf("no configuration for shop %q", p.ShopID)
	}
	return o.calc.Calculate(ctx, p, shop)
}

// Rank orders by relevance descending, then landed cost (or list price when cost is
// unknown) ascending. The sort is stable so equal items keep adapter order.
func Rank(products []models.ProductResult) {
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].RelevanceScore != products[j].RelevanceScore {
			return products[i].RelevanceScore > products[j].RelevanceScore
		}
		return products[i].LandedOrPrice().LessThan(products[j].LandedOrPrice())
	})
}

func flatten(results [][]models.ProductResult) []models.ProductResult {
	var out []models.ProductResult
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
