// Package registry binds shop configurations to adapter instances. A Registry is
// built once at startup and handed to every consumer; it holds no global state.
package registry

import (
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/httputil"
	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/andreasragnarsson/fashion-finder/internal/shops"
	"github.com/andreasragnarsson/fashion-finder/internal/shops/feed"
	"github.com/andreasragnarsson/fashion-finder/internal/shops/kidsbrandstore"
	"github.com/andreasragnarsson/fashion-finder/internal/shops/render"
	"github.com/andreasragnarsson/fashion-finder/internal/shops/scrape"
	"github.com/andreasragnarsson/fashion-finder/internal/shops/zalando"
	"github.com/andreasragnarsson/fashion-finder/internal/stealth"
	"golang.org/x/time/rate"
)

// Factory builds the adapter of one shop.
type Factory func(cfg *models.ShopConfig, env shops.Env) platform.Adapter

// Implementation keys accepted in a shop's adapter field.
const (
	ImplFeed           = "feed"
	ImplScrape         = "scrape"
	ImplRender         = "render"
	ImplZalando        = "zalando"
	ImplKidsbrandstore = "kidsbrandstore"
)

// shopOverrides pins shops whose storefronts need a specialised implementation even
// when their config does not say so.
var shopOverrides = map[string]string{
	"zalando_se":        ImplZalando,
	"kidsbrandstore_se": ImplKidsbrandstore,
}

func builtinFactories() map[string]Factory {
	feedFactory := func(cfg *models.ShopConfig, env shops.Env) platform.Adapter { return feed.New(cfg, env) }
	return map[string]Factory{
		ImplFeed: feedFactory,
		"csv":    feedFactory,
		"xml":    feedFactory,
		ImplScrape: func(cfg *models.ShopConfig, env shops.Env) platform.Adapter {
			return scrape.New(cfg, env, nil)
		},
		ImplRender: func(cfg *models.ShopConfig, env shops.Env) platform.Adapter {
			return render.New(cfg, env, nil, nil)
		},
		ImplZalando: func(cfg *models.ShopConfig, env shops.Env) platform.Adapter {
			return scrape.New(cfg, env, zalando.NewStrategy(cfg))
		},
		ImplKidsbrandstore: func(cfg *models.ShopConfig, env shops.Env) platform.Adapter {
			return render.New(cfg, env, kidsbrandstore.NewStrategy(cfg), nil)
		},
	}
}

// Options is the outbound environment shared by all adapters.
type Options struct {
	// Transport is cloned per adapter with a private limiter. Nil means a bare
	// transport without robots, fingerprint or proxy handling.
	Transport  *stealth.StealthTransport
	Rate       models.RateLimit
	Timeout    time.Duration
	BrowserBin string
	UserAgent  string
}

type Registry struct {
	opts      Options
	factories map[string]Factory

	mu       sync.Mutex
	configs  map[string]*models.ShopConfig
	order    []string
	adapters map[string]platform.Adapter
	skipped  []error
}

func New(opts Options) *Registry {
	if opts.Transport == nil {
		opts.Transport = &stealth.StealthTransport{}
	}
	if opts.Rate.PerSecond <= 0 {
		opts.Rate.PerSecond = 0.5
	}
	if opts.Rate.Burst <= 0 {
		opts.Rate.Burst = 1
	}
	return &Registry{
		opts:      opts,
		factories: builtinFactories(),
		configs:   map[string]*models.ShopConfig{},
		adapters:  map[string]platform.Adapter{},
	}
}

// Register adds or replaces the factory for an implementation key.
func (r *Registry) Register(key string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key] = f
}

// Load reads shop configurations from a YAML file or directory. Shops that fail to
// parse are recorded in Skipped and excluded; the remaining shops are unaffected.
// Loading the same configuration again changes nothing and keeps built adapters.
func (r *Registry) Load(path string) error {
	configs, errs, err := ReadConfigs(path)
	if err != nil {
		return err
	}
	r.Add(configs...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = errs
	for _, e := range errs {
		logx.Warn().Err(e).Msg("shop config skipped")
	}
	return nil
}

// Add registers already-parsed configurations, keeping first-seen order. A changed
// configuration discards the adapter built from the old one.
func (r *Registry) Add(configs ...*models.ShopConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cfg := range configs {
		old, exists := r.configs[cfg.ID]
		if !exists {
			r.order = append(r.order, cfg.ID)
		} else if !reflect.DeepEqual(old, cfg) {
			r.closeAdapter(cfg.ID)
		} else {
			continue
		}
		r.configs[cfg.ID] = cfg
	}
}

// Skipped returns the configuration errors of the last Load.
func (r *Registry) Skipped() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.skipped...)
}

func (r *Registry) Config(id string) (*models.ShopConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[id]
	return cfg, ok
}

// Configs returns every loaded configuration in load order.
func (r *Registry) Configs() []*models.ShopConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ShopConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.configs[id])
	}
	return out
}

// Adapter returns the single adapter of a shop, building it on first use. An unknown
// shop id is an errx.ErrNotFound.
func (r *Registry) Adapter(id string) (platform.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adapterLocked(id)
}

// Adapters returns one adapter per loaded shop, in load order.
func (r *Registry) Adapters() []platform.Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]platform.Adapter, 0, len(r.order))
	for _, id := range r.order {
		a, err := r.adapterLocked(id)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Subset resolves the given shop ids, skipping unknown ones. An empty list means all.
func (r *Registry) Subset(ids []string) []platform.Adapter {
	if len(ids) == 0 {
		return r.Adapters()
	}
	var out []platform.Adapter
	for _, id := range ids {
		a, err := r.Adapter(id)
		if err != nil {
			logx.Warn().Str("shop", id).Msg("unknown shop")
			continue
		}
		out = append(out, a)
	}
	return out
}

// Implementation reports which factory key a configuration dispatches to: the
// explicit override, then the shop's pinned specialisation, then the declared feed
// format, then the default feed adapter.
func (r *Registry) Implementation(cfg *models.ShopConfig) string {
	if cfg.Adapter != "" {
		return cfg.Adapter
	}
	if key, ok := shopOverrides[cfg.ID]; ok {
		return key
	}
	if t := cfg.FeedType(); t != "" {
		if _, ok := r.factories[t]; ok {
			return t
		}
	}
	return ImplFeed
}

func (r *Registry) adapterLocked(id string) (platform.Adapter, error) {
	if a, ok := r.adapters[id]; ok {
		return a, nil
	}
	cfg, ok := r.configs[id]
	if !ok {
		return nil, errx.NotFound(id, "shop")
	}

	key := r.Implementation(cfg)
	factory, ok := r.factories[key]
	if !ok {
		logx.Shop(id).Warn().Str("adapter", key).Msg("unknown adapter, using feed")
		factory = r.factories[ImplFeed]
	}
	a := factory(cfg, r.env(cfg))
	r.adapters[id] = a
	return a, nil
}

func (r *Registry) env(cfg *models.ShopConfig) shops.Env {
	perSecond, burst := r.opts.Rate.PerSecond, r.opts.Rate.Burst
	if cfg.RateLimit.PerSecond > 0 {
		perSecond = cfg.RateLimit.PerSecond
	}
	if cfg.RateLimit.Burst > 0 {
		burst = cfg.RateLimit.Burst
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return shops.Env{
		Client:     httputil.NewHTTPClient(r.opts.Transport.ForShop(limiter), r.opts.Timeout),
		Limiter:    limiter,
		Timeout:    r.opts.Timeout,
		BrowserBin: r.opts.BrowserBin,
		UserAgent:  r.opts.UserAgent,
	}
}

func (r *Registry) closeAdapter(id string) error {
	a, ok := r.adapters[id]
	if !ok {
		return nil
	}
	delete(r.adapters, id)
	if c, ok := a.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Close releases adapters holding external resources such as browser sessions.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, id := range r.order {
		if err := r.closeAdapter(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
