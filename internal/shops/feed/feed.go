// Package feed implements the catalog-backed adapter: one download of a CSV or XML
// product feed, cached in memory and searched locally until the next import.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/httputil"
	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/andreasragnarsson/fashion-finder/internal/relevance"
	"github.com/andreasragnarsson/fashion-finder/internal/shops"
)

// Adapter serves searches from an in-memory snapshot of the shop's feed. The
// snapshot is written only by import and read concurrently by everything else.
type Adapter struct {
	cfg *models.ShopConfig
	env shops.Env
	now func() time.Time

	importMu sync.Mutex

	mu      sync.RWMutex
	catalog map[string]models.ProductResult
	order   []string
	loaded  bool
}

func New(cfg *models.ShopConfig, env shops.Env) *Adapter {
	return &Adapter{cfg: cfg, env: env, now: time.Now}
}

func (a *Adapter) ShopID() string      { return a.cfg.ID }
func (a *Adapter) Kind() platform.Kind { return platform.KindFeed }

// Loaded reports whether a catalog snapshot is in memory.
func (a *Adapter) Loaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loaded
}

func (a *Adapter) Search(ctx context.Context, q models.SearchQuery) platform.Result[[]models.ProductResult] {
	if err := a.ensureLoaded(ctx); err != nil {
		return platform.Fail[[]models.ProductResult](err)
	}

	terms := q.Terms()
	a.mu.RLock()
	var hits []models.ProductResult
	for _, id := range a.order {
		p := a.catalog[id]
		if Matches(q, &p, terms) {
			hits = append(hits, p)
		}
	}
	a.mu.RUnlock()

	return platform.OK(relevance.Apply(q, hits))
}

func (a *Adapter) FetchOne(ctx context.Context, externalID string) platform.Result[*models.ProductResult] {
	if err := a.ensureLoaded(ctx); err != nil {
		return platform.Fail[*models.ProductResult](err)
	}

	a.mu.RLock()
	p, ok := a.catalog[externalID]
	a.mu.RUnlock()
	if !ok {
		return platform.Fail[*models.ProductResult](errx.NotFound(a.cfg.ID, "product "+externalID))
	}
	return platform.OK(&p)
}

// BulkImport downloads the feed again and swaps the snapshot.
func (a *Adapter) BulkImport(ctx context.Context) platform.Result[[]models.ProductResult] {
	a.importMu.Lock()
	defer a.importMu.Unlock()

	products, err := a.load(ctx)
	if err != nil {
		return platform.Fail[[]models.ProductResult](err)
	}
	return platform.OK(products)
}

func (a *Adapter) CheckAvailability(ctx context.Context, externalID string) platform.Result[platform.Availability] {
	return platform.AvailabilityOf(a.FetchOne(ctx, externalID))
}

func (a *Adapter) ensureLoaded(ctx context.Context) error {
	if a.Loaded() {
		return nil
	}
	a.importMu.Lock()
	defer a.importMu.Unlock()
	if a.Loaded() {
		return nil
	}
	_, err := a.load(ctx)
	return err
}

// load must be called with importMu held.
func (a *Adapter) load(ctx context.Context) ([]models.ProductResult, error) {
	log := logx.Shop(a.cfg.ID)

	var products []models.ProductResult
	if a.cfg.Feed != nil && a.cfg.Feed.URL != "" {
		rows, recordErrs, err := a.fetchRows(ctx)
		if err != nil {
			return nil, err
		}

		mapping := Mapping(a.cfg.Feed.Mapping)
		now := a.now()
		for i, row := range rows {
			p, err := mapping.MapRow(row)
			if err != nil {
				recordErrs = append(recordErrs, errx.Record(a.cfg.ID, fmt.Sprintf("row %d", i+1), err))
				continue
			}
			shops.Decorate(a.cfg, &p, now)
			products = append(products, p)
		}
		if len(recordErrs) > 0 {
			log.Warn().Int("skipped", len(recordErrs)).Err(recordErrs[0]).Msg("feed records skipped")
		}
	}

	catalog := make(map[string]models.ProductResult, len(products))
	order := make([]string, 0, len(products))
	for _, p := range products {
		if _, dup := catalog[p.ExternalID]; !dup {
			order = append(order, p.ExternalID)
		}
		catalog[p.ExternalID] = p
	}

	a.mu.Lock()
	a.catalog = catalog
	a.order = order
	a.loaded = true
	a.mu.Unlock()

	log.Info().Int("products", len(catalog)).Msg("feed imported")
	return products, nil
}

func (a *Adapter) fetchRows(ctx context.Context) ([]Row, []error, error) {
	if a.env.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.env.Timeout)
		defer cancel()
	}

	feedType := a.cfg.FeedType()
	body, status, err := httputil.Get(ctx, a.env.Client, a.cfg.Feed.URL, httputil.FeedHeaders(feedType), 2)
	if err != nil {
		return nil, nil, errx.Source(a.cfg.ID, "fetch feed", err)
	}
	if status != http.StatusOK {
		return nil, nil, errx.Source(a.cfg.ID, "fetch feed", fmt.Errorf("status %d", status))
	}

	if feedType == "xml" {
		rows, err := ParseXML(a.cfg.ID, body, Mapping(a.cfg.Feed.Mapping).ItemTag())
		return rows, nil, err
	}
	return ParseCSV(a.cfg.ID, body)
}
