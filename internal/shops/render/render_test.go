package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/andreasragnarsson/fashion-finder/internal/shops"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var _ platform.Adapter = (*Adapter)(nil)

type fakeRenderer struct {
	mu     sync.Mutex
	pages  map[string]string
	err    error
	calls  []string
	opts   []PageOptions
	closed bool
}

func (f *fakeRenderer) Render(_ context.Context, pageURL string, opts PageOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pageURL)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return "", f.err
	}
	return f.pages[pageURL], nil
}

func (f *fakeRenderer) Close() error {
	f.closed = true
	return nil
}

func TestSegment(t *testing.T) {
	lexicon := []string{"Adidas", "Adidas Originals", "Lyle & Scott", "Nike"}

	got := Segment("NyhetLyle & ScottCrew Neck Sweatshirt649 kr", lexicon)
	require.Equal(t, "Lyle & Scott", got.Brand)
	require.Equal(t, "Crew Neck Sweatshirt", got.Name)
	require.True(t, decimal.NewFromInt(649).Equal(*got.Price))

	got = Segment("Adidas OriginalsTrefoil Hoodie1 299 kr", lexicon)
	require.Equal(t, "Adidas Originals", got.Brand)
	require.Equal(t, "Trefoil Hoodie", got.Name)
	require.True(t, decimal.NewFromInt(1299).Equal(*got.Price))

	got = Segment("Okänt märke Mössa", lexicon)
	require.Empty(t, got.Brand)
	require.Equal(t, "Okänt märke Mössa", got.Name)
	require.Nil(t, got.Price)

	require.Equal(t, TextParts{}, Segment("", lexicon))
}

const tiles = `<html><body>
<div class="product-item"><a href="/product/1">x</a><span class="product-name">Rain Jacket</span>
<span class="product-price">899 kr</span></div>
</body></html>`

func TestSearchUsesRendererAndDecorates(t *testing.T) {
	cfg := &models.ShopConfig{ID: "spa_shop", URL: "https://spa.example", Currency: "SEK",
		Scrape: models.ScrapeConfig{WaitSelector: ".product-item", Settle: time.Second}}
	fr := &fakeRenderer{pages: map[string]string{"https://spa.example/search?q=jacket": tiles}}
	a := New(cfg, shops.Env{Limiter: rate.NewLimiter(rate.Inf, 1)}, nil, fr)

	res := a.Search(context.Background(), models.SearchQuery{Query: "jacket"})
	require.NoError(t, res.Err)
	require.Len(t, res.Value, 1)
	require.Equal(t, "spa_shop", res.Value[0].ShopID)
	require.Equal(t, "https://spa.example/product/1", res.Value[0].ProductURL)

	require.Equal(t, ".product-item", fr.opts[0].WaitSelector)
	require.Equal(t, time.Second, fr.opts[0].Settle)
	require.Equal(t, DefaultConsent, fr.opts[0].Consent)

	require.NoError(t, a.Close())
	require.True(t, fr.closed)
}

func TestRenderFailureIsSourceError(t *testing.T) {
	fr := &fakeRenderer{err: errors.New("browser crashed")}
	a := New(&models.ShopConfig{ID: "spa_shop", URL: "https://spa.example"}, shops.Env{}, nil, fr)

	res := a.Search(context.Background(), models.SearchQuery{Query: "x"})
	require.True(t, errors.Is(res.Err, errx.ErrSource))

	av := a.CheckAvailability(context.Background(), "1")
	require.Error(t, av.Err)
}

func TestFetchOneWithoutProductIsNotFound(t *testing.T) {
	fr := &fakeRenderer{pages: map[string]string{}}
	a := New(&models.ShopConfig{ID: "spa_shop", URL: "https://spa.example"}, shops.Env{}, nil, fr)

	res := a.FetchOne(context.Background(), "1")
	require.True(t, errors.Is(res.Err, errx.ErrNotFound))
	require.Equal(t, []string{"https://spa.example/product/1"}, fr.calls)

	av := a.CheckAvailability(context.Background(), "1")
	require.NoError(t, av.Err)
	require.False(t, av.Value.InStock)
}

func TestPauseStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := pause(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)

	require.NoError(t, pause(context.Background(), time.Millisecond))
	require.NoError(t, pause(context.Background(), 0))
}
