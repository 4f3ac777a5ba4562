package registry

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/andreasragnarsson/fashion-finder/internal/shops"
	"github.com/andreasragnarsson/fashion-finder/internal/shops/feed"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const shopsYAML = `
id: zalando_se
name: Zalando
url: https://www.zalando.se
region: SE
currency: SEK
trust_score: 0.9
shipping:
  free_threshold: 499
  base_cost: 49
---
id: asos_uk
name: ASOS
display_name: ASOS UK
url: https://www.asos.com
region: NON_EU
currency: GBP
feed:
  url: https://feeds.example/asos.csv
  type: csv
  mapping:
    id: sku
affiliate:
  network: awin
  id: "123"
  url_template: "https://www.awin1.com/cread.php?awinmid={affiliate_id}&p={url}"
shipping:
  base_cost: 4.95
  ships_to_home: false
---
id: broken
url: https://broken.example
---
id: spa_shop
name: SPA
url: https://spa.example
adapter: render
scrape:
  wait_selector: .tile
  settle_ms: 1500
rate_limit:
  per_second: 2
  burst: 3
`

func writeShops(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestParseConfigs(t *testing.T) {
	configs, errs := ParseConfigs("shops.yaml", []byte(shopsYAML))
	require.Len(t, configs, 3)
	require.Len(t, errs, 1)
	require.True(t, errors.Is(errs[0], errx.ErrConfiguration))

	z := configs[0]
	require.Equal(t, models.RegionHome, z.Region)
	require.Equal(t, "Zalando", z.DisplayName)
	require.True(t, decimal.NewFromInt(499).Equal(*z.Shipping.FreeThreshold))
	require.True(t, z.Shipping.ShipsToHome)

	asos := configs[1]
	require.Equal(t, models.RegionOther, asos.Region)
	require.Equal(t, "ASOS UK", asos.DisplayName)
	require.Equal(t, "csv", asos.FeedType())
	require.Equal(t, "sku", asos.Feed.Mapping["id"])
	require.Equal(t, "123", asos.Affiliate.ID)
	require.True(t, decimal.RequireFromString("4.95").Equal(asos.Shipping.BaseCost))
	require.False(t, asos.Shipping.ShipsToHome)
	require.Equal(t, 0.8, asos.TrustScore)

	spa := configs[2]
	require.Equal(t, models.RegionCustomsUnion, spa.Region)
	require.Equal(t, "SEK", spa.Currency)
	require.Equal(t, int64(1500), spa.Scrape.Settle.Milliseconds())
	require.Equal(t, 3, spa.RateLimit.Burst)
}

func TestParseConfigsRejectsBadValues(t *testing.T) {
	_, errs := ParseConfigs("bad.yaml", []byte(`
id: a
name: A
url: https://a.example
region: MARS
---
id: b
name: B
url: https://b.example
currency: kronor
---
id: c
name: C
url: https://c.example
trust_score: 1.5
`))
	require.Len(t, errs, 3)
}

func TestLoadDispatchesAndCaches(t *testing.T) {
	dir := writeShops(t, map[string]string{
		"10-shops.yaml": shopsYAML,
		"20-kbs.yml":    "id: kidsbrandstore_se\nname: Kidsbrandstore\nurl: https://www.kidsbrandstore.se\n",
		"notes.txt":     "ignored",
	})
	r := New(Options{})
	require.NoError(t, r.Load(dir))
	require.Len(t, r.Skipped(), 1)

	adapters := r.Adapters()
	require.Len(t, adapters, 4)

	ids := make([]string, len(adapters))
	kinds := map[string]platform.Kind{}
	for i, a := range adapters {
		ids[i] = a.ShopID()
		kinds[a.ShopID()] = a.Kind()
	}
	require.Equal(t, []string{"zalando_se", "asos_uk", "spa_shop", "kidsbrandstore_se"}, ids)
	require.Equal(t, platform.KindScrape, kinds["zalando_se"])
	require.Equal(t, platform.KindFeed, kinds["asos_uk"])
	require.Equal(t, platform.KindRender, kinds["spa_shop"])
	require.Equal(t, platform.KindRender, kinds["kidsbrandstore_se"])

	again, err := r.Adapter("zalando_se")
	require.NoError(t, err)
	require.Same(t, adapters[0], again)

	_, err = r.Adapter("broken")
	require.True(t, errors.Is(err, errx.ErrNotFound))

	require.NoError(t, r.Load(dir))
	require.Len(t, r.Configs(), 4)
	same, _ := r.Adapter("zalando_se")
	require.Same(t, again, same)

	require.NoError(t, r.Close())
}

func TestRegisteredFactoryOverridesBuiltin(t *testing.T) {
	r := New(Options{})
	var built int
	r.Register(ImplFeed, func(cfg *models.ShopConfig, env shops.Env) platform.Adapter {
		built++
		require.NotNil(t, env.Client)
		require.NotNil(t, env.Limiter)
		return feed.New(cfg, env)
	})
	r.Add(&models.ShopConfig{ID: "plain", Name: "Plain", URL: "https://plain.example"})

	_, err := r.Adapter("plain")
	require.NoError(t, err)
	_, err = r.Adapter("plain")
	require.NoError(t, err)
	require.Equal(t, 1, built)
}

func TestDispatchOrder(t *testing.T) {
	r := New(Options{})
	require.Equal(t, "scrape", r.Implementation(&models.ShopConfig{ID: "zalando_se", Adapter: "scrape"}))
	require.Equal(t, ImplZalando, r.Implementation(&models.ShopConfig{ID: "zalando_se"}))
	require.Equal(t, "xml", r.Implementation(&models.ShopConfig{ID: "x", Feed: &models.FeedConfig{Type: "XML"}}))
	require.Equal(t, ImplFeed, r.Implementation(&models.ShopConfig{ID: "x", Feed: &models.FeedConfig{Type: "json"}}))
	require.Equal(t, ImplFeed, r.Implementation(&models.ShopConfig{ID: "x"}))
}

func TestSubsetSkipsUnknownShops(t *testing.T) {
	r := New(Options{})
	r.Add(&models.ShopConfig{ID: "a", Name: "A", URL: "https://a.example"})
	require.Len(t, r.Subset([]string{"a", "nope"}), 1)
	require.Len(t, r.Subset(nil), 1)

	var wg sync.WaitGroup
	got := make([]platform.Adapter, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = r.Adapter("a")
		}(i)
	}
	wg.Wait()
	for _, a := range got {
		require.Same(t, got[0], a)
	}
}
