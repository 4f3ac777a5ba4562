package cost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/httputil"
	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/shopspring/decimal"
)

const (
	HomeCurrency      = "SEK"
	ReferenceCurrency = "EUR"

	defaultRateURL = "https://api.exchangerate-api.com/v4/latest/%s"

	// failedRateTTL is how long a pair whose live lookup failed stays on the static table.
	failedRateTTL = 10 * time.Minute
)

// staticRates maps a currency to its value in the home currency.
var staticRates = map[string]decimal.Decimal{
	"EUR": mustDecimal("11.50"),
	"USD": mustDecimal("10.50"),
	"GBP": mustDecimal("13.50"),
	"SEK": mustDecimal("1.0"),
}

// RateProvider fetches a live rate for one currency pair.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// SharedCache is an optional cross-process tier of the rate memo.
type SharedCache interface {
	GetRate(ctx context.Context, pair string) (decimal.Decimal, bool)
	SetRate(ctx context.Context, pair string, rate decimal.Decimal)
}

// Rates is the process-local exchange-rate memo backed by the static table.
// Concurrent duplicate population is harmless: values are deterministic and the
// last writer wins.
type Rates struct {
	memo   sync.Map // "FROM_TO" -> decimal.Decimal
	failed sync.Map // "FROM_TO" -> time.Time of the last failed live lookup
	live   RateProvider
	shared SharedCache
	now    func() time.Time
}

type RatesOption func(*Rates)

// WithLiveProvider enables live lookups. Pass nil to keep static-only behaviour.
func WithLiveProvider(p RateProvider) RatesOption {
	return func(r *Rates) { r.live = p }
}

func WithSharedCache(c SharedCache) RatesOption {
	return func(r *Rates) { r.shared = c }
}

func NewRates(opts ...RatesOption) *Rates {
	r := &Rates{now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

func pairKey(from, to string) string {
	return from + "_" + to
}

// Rate returns the multiplier converting from → to. It never fails: live lookup
// errors fall back to the static table silently, and the pair is not retried live
// for failedRateTTL.
func (r *Rates) Rate(ctx context.Context, from, to string) decimal.Decimal {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1)
	}

	key := pairKey(from, to)
	if v, ok := r.memo.Load(key); ok {
		return v.(decimal.Decimal)
	}

	if r.live != nil && !r.recentlyFailed(key) {
		if r.shared != nil {
			if rate, ok := r.shared.GetRate(ctx, key); ok {
				r.memo.Store(key, rate)
				return rate
			}
		}
		rate, err := r.live.Rate(ctx, from, to)
		if err == nil {
			rate = roundRate(rate)
			r.memo.Store(key, rate)
			r.failed.Delete(key)
			if r.shared != nil {
				r.shared.SetRate(ctx, key, rate)
			}
			return rate
		}
		r.failed.Store(key, r.now())
		logx.Debug().Err(errx.RateProvider(key, err)).Msg("live rate unavailable, using static table")
	}

	return StaticRate(from, to)
}

func (r *Rates) recentlyFailed(key string) bool {
	v, ok := r.failed.Load(key)
	return ok && r.now().Sub(v.(time.Time)) < failedRateTTL
}

// StaticRate resolves a pair from the static table, pivoting through the home
// currency when the pair is not a direct home-currency rate. Unknown currencies
// count as parity with the home currency.
func StaticRate(from, to string) decimal.Decimal {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1)
	}
	fromHome := homeValue(from)
	if to == HomeCurrency {
		return fromHome
	}
	return roundRate(fromHome.Div(homeValue(to)))
}

func homeValue(cur string) decimal.Decimal {
	if v, ok := staticRates[cur]; ok {
		return v
	}
	return decimal.NewFromInt(1)
}

// LiveProvider queries exchangerate-api.com. It is only constructed when an API key
// is configured.
type LiveProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

func NewLiveProvider(client *http.Client, apiKey string) *LiveProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &LiveProvider{client: client, apiKey: apiKey, baseURL: defaultRateURL}
}

type latestRates struct {
	Rates map[string]json.Number `json:"rates"`
}

func (p *LiveProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(p.baseURL, from), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := httputil.DoWithRetry(p.client, req, 1)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate api status %d", resp.StatusCode)
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return decimal.Zero, err
	}
	var data latestRates
	if err := json.Unmarshal(body, &data); err != nil {
		return decimal.Zero, fmt.Errorf("decode rates: %w", err)
	}
	raw, ok := data.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate not found for %s", to)
	}
	return decimal.NewFromString(raw.String())
}
