package cost

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func shop(region models.Region, currency, base string, threshold *decimal.Decimal) *models.ShopConfig {
	return &models.ShopConfig{
		ID:       "test_shop",
		Region:   region,
		Currency: currency,
		Shipping: models.ShippingPolicy{BaseCost: dec(base), FreeThreshold: threshold, ShipsToHome: true},
	}
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s got %s", want, got)
}

func TestHomeRegionHasNoDutyOrVAT(t *testing.T) {
	calc := NewCalculator(NewRates())
	p := models.ProductResult{ShopID: "test_shop", Price: dec("500"), Currency: "SEK", Category: "jacket"}

	cb, err := calc.Calculate(context.Background(), p, shop(models.RegionHome, "SEK", "49", decp("1000")))
	require.NoError(t, err)
	requireMoney(t, "49", cb.Shipping)
	require.True(t, cb.Duty.IsZero())
	require.True(t, cb.VAT.IsZero())
	requireMoney(t, "549", cb.Total)
	requireMoney(t, "549", cb.TotalHome)
}

func TestCustomsUnionHasNoDutyOrVAT(t *testing.T) {
	calc := NewCalculator(NewRates())
	p := models.ProductResult{Price: dec("300"), Currency: "EUR", Category: "coat"}

	cb, err := calc.Calculate(context.Background(), p, shop(models.RegionCustomsUnion, "EUR", "15", nil))
	require.NoError(t, err)
	require.True(t, cb.Duty.IsZero())
	require.True(t, cb.VAT.IsZero())
	requireMoney(t, "315", cb.Total)
	requireMoney(t, "3622.50", cb.TotalHome)
}

func TestBelowDeMinimisOnlyVAT(t *testing.T) {
	calc := NewCalculator(NewRates())
	p := models.ProductResult{Price: dec("100"), Currency: "EUR", Category: "clothing"}

	cb, err := calc.Calculate(context.Background(), p, shop(models.RegionOther, "EUR", "10", nil))
	require.NoError(t, err)
	requireMoney(t, "10", cb.Shipping)
	require.True(t, cb.Duty.IsZero())
	requireMoney(t, "27.50", cb.VAT)
	requireMoney(t, "137.50", cb.Total)
	requireMoney(t, "1581.25", cb.TotalHome)
}

func TestAboveDeMinimisClothingDuty(t *testing.T) {
	calc := NewCalculator(NewRates())
	p := models.ProductResult{Price: dec("200"), Currency: "EUR", Category: "clothing"}

	cb, err := calc.Calculate(context.Background(), p, shop(models.RegionOther, "EUR", "20", nil))
	require.NoError(t, err)
	requireMoney(t, "24.00", cb.Duty)
	requireMoney(t, "61.00", cb.VAT)
	requireMoney(t, "305.00", cb.Total)
	requireMoney(t, "3507.50", cb.TotalHome)
}

func TestDeMinimisIsInclusive(t *testing.T) {
	calc := NewCalculator(NewRates())
	duty, vat := calc.Customs(dec("140"), dec("10"), models.RegionOther, "shoes")
	require.True(t, duty.IsZero())
	requireMoney(t, "37.50", vat)

	duty, _ = calc.Customs(dec("140.01"), dec("10"), models.RegionOther, "shoes")
	requireMoney(t, "11.20", duty)
}

func TestNonReferenceCurrencyPivotsAndRoundsEachStep(t *testing.T) {
	calc := NewCalculator(NewRates())
	p := models.ProductResult{Price: dec("100"), Currency: "USD", Category: "t-shirt"}

	cb, err := calc.Calculate(context.Background(), p, shop(models.RegionOther, "USD", "0", nil))
	require.NoError(t, err)
	// 100 USD -> 91.30 EUR; VAT 22.83 EUR -> 25.00 USD
	require.True(t, cb.Duty.IsZero())
	requireMoney(t, "25.00", cb.VAT)
	requireMoney(t, "125.00", cb.Total)
	requireMoney(t, "1312.50", cb.TotalHome)
}

func TestFreeShippingThresholdBoundary(t *testing.T) {
	calc := NewCalculator(NewRates())
	s := shop(models.RegionHome, "SEK", "59", decp("500"))

	require.True(t, calc.Shipping(dec("500"), s).IsZero())
	require.True(t, calc.Shipping(dec("650"), s).IsZero())
	requireMoney(t, "59", calc.Shipping(dec("499.99"), s))
}

func TestNoShippingWhenShopCannotShipHome(t *testing.T) {
	calc := NewCalculator(NewRates())
	s := shop(models.RegionOther, "USD", "25", nil)
	s.Shipping.ShipsToHome = false

	require.True(t, calc.Shipping(dec("10"), s).IsZero())
}

func TestDutyRateBuckets(t *testing.T) {
	cases := map[string]string{
		"Clothing":       "clothing",
		"Denim Jacket":   "clothing",
		"Running shoes":  "footwear",
		"Chelsea Boots":  "footwear",
		"Leather belt":   "accessories",
		"Jewelry":        "accessories",
		"Crop top":       "clothing",
		"Tops & tees":    "clothing",
		"Laptop bag":     "accessories",
		"Topaz jewelry":  "accessories",
		"Laptop sleeve":  "default",
		"Home fragrance": "default",
		"":               "default",
	}
	for category, want := range cases {
		_, bucket := DutyRate(category)
		require.Equal(t, want, bucket, category)
	}
}

func TestCalculateIsReproducible(t *testing.T) {
	calc := NewCalculator(NewRates())
	p := models.ProductResult{Price: dec("189.99"), Currency: "GBP", Category: "sweater"}
	s := shop(models.RegionOther, "GBP", "7.95", decp("250"))

	first, err := calc.Calculate(context.Background(), p, s)
	require.NoError(t, err)
	second, err := calc.Calculate(context.Background(), p, s)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestCalculateRejectsMissingShop(t *testing.T) {
	calc := NewCalculator(nil)
	_, err := calc.Calculate(context.Background(), models.ProductResult{Price: dec("1"), Currency: "SEK"}, nil)
	require.Error(t, err)
}
