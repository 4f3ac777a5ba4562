package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreasragnarsson/fashion-finder/internal/cost"
	"github.com/andreasragnarsson/fashion-finder/internal/httputil"
	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/monitor"
	"github.com/andreasragnarsson/fashion-finder/internal/notify"
	"github.com/andreasragnarsson/fashion-finder/internal/observability"
	"github.com/andreasragnarsson/fashion-finder/internal/registry"
	"github.com/andreasragnarsson/fashion-finder/internal/search"
	"github.com/andreasragnarsson/fashion-finder/internal/store"
	"github.com/andreasragnarsson/fashion-finder/mcp"
	"github.com/redis/go-redis/v9"
)

// app wires the collaborators of one command invocation.
type app struct {
	registry *registry.Registry
	metrics  *observability.Metrics
	calc     *cost.Calculator
	search   *search.Orchestrator

	redis   *redis.Client
	watches store.WatchStore
}

func newApp(ctx context.Context) (*app, error) {
	transport, err := buildTransport()
	if err != nil {
		return nil, err
	}

	reg := registry.New(registry.Options{
		Transport:  transport,
		Rate:       models.RateLimit{PerSecond: cfg.RatePerSecond, Burst: cfg.RateBurst},
		Timeout:    cfg.RequestTimeout,
		BrowserBin: cfg.BrowserBin,
	})
	if err := reg.Load(cfg.ShopsPath); err != nil {
		return nil, fmt.Errorf("load shops from %s: %w", cfg.ShopsPath, err)
	}

	a := &app{registry: reg, metrics: observability.NewMetrics()}

	var rateOpts []cost.RatesOption
	if cfg.ExchangeRateAPIKey != "" {
		client := httputil.NewHTTPClient(nil, cfg.RequestTimeout)
		rateOpts = append(rateOpts, cost.WithLiveProvider(cost.NewLiveProvider(client, cfg.ExchangeRateAPIKey)))
	}
	if cfg.RedisURL != "" {
		rc, err := cost.RedisConfig{URL: cfg.RedisURL}.NewRedisClient(ctx)
		if err != nil {
			// the shared tier is optional
			logx.Warn().Err(err).Msg("redis unavailable, using process-local rates only")
		} else {
			a.redis = rc
			rateOpts = append(rateOpts, cost.WithSharedCache(cost.NewRedisCache(rc, cfg.RateCacheTTL)))
		}
	}
	a.calc = cost.NewCalculator(cost.NewRates(rateOpts...))

	a.search = search.New(reg, a.calc,
		search.WithMetrics(a.metrics),
		search.WithConcurrency(cfg.MaxConcurrent),
	)
	return a, nil
}

// store opens the watch store on first use.
func (a *app) store(ctx context.Context) (store.WatchStore, error) {
	if a.watches != nil {
		return a.watches, nil
	}
	st, err := store.Open(ctx, cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open watch store: %w", err)
	}
	a.watches = st
	return st, nil
}

func (a *app) notifier() notify.Notifier {
	if cfg.ResendAPIKey == "" {
		logx.Info().Msg("RESEND_API_KEY not set, notifications go to the log")
		return notify.LogNotifier{}
	}
	return notify.NewResendNotifier(cfg.ResendAPIKey, cfg.FromEmail)
}

func (a *app) monitor(watches store.WatchStore) *monitor.Monitor {
	return monitor.New(a.registry, watches, a.notifier(),
		monitor.WithBatching(cfg.MonitorBatchSize, cfg.MonitorBatchDelay),
		monitor.WithMetrics(a.metrics),
	)
}

// mcpDeps exposes the app to the MCP tools. Price checks are available only when the
// watch store opens.
func (a *app) mcpDeps(ctx context.Context) mcp.Deps {
	deps := mcp.Deps{Shops: a.registry, Searcher: a.search, Costs: a.calc}
	st, err := a.store(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("check_prices disabled")
		return deps
	}
	deps.Watches = st
	deps.Checker = a.monitor(st)
	return deps
}

func (a *app) Close() error {
	var errs []error
	errs = append(errs, a.registry.Close())
	if a.watches != nil {
		errs = append(errs, a.watches.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
