// Package cost computes landed cost: price, shipping, import duty and import VAT,
// converted into the home currency.
package cost

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/shopspring/decimal"
)

var (
	importVATRate   = mustDecimal("0.25")
	deMinimisRef    = mustDecimal("150")
	defaultDutyRate = mustDecimal("0.05")
)

type dutyBucket struct {
	name     string
	rate     decimal.Decimal
	keywords []string
	// words only match a whole word of the category.
	words []string
}

// dutyBuckets are matched in order against the lowercase category; the first hit wins.
var dutyBuckets = []dutyBucket{
	{"clothing", mustDecimal("0.12"), []string{
		"clothing", "shirt", "pants", "jacket", "dress", "coat", "hoodie", "sweater",
		"jeans", "trousers", "skirt", "shorts", "blouse", "cardigan",
	}, []string{"top", "tops"}},
	{"footwear", mustDecimal("0.08"), []string{"shoe", "boot", "sneaker", "sandal", "footwear", "trainer"}, nil},
	{"accessories", mustDecimal("0.04"), []string{"bag", "belt", "watch", "jewelry", "jewellery", "accessor"}, nil},
}

// DutyRate returns the duty rate and bucket name for a product category.
func DutyRate(category string) (decimal.Decimal, string) {
	c := strings.ToLower(category)
	if c != "" {
		words := strings.FieldsFunc(c, func(r rune) bool { return !unicode.IsLetter(r) })
		for _, b := range dutyBuckets {
			for _, kw := range b.keywords {
				if strings.Contains(c, kw) {
					return b.rate, b.name
				}
			}
			for _, w := range b.words {
				if slices.Contains(words, w) {
					return b.rate, b.name
				}
			}
		}
	}
	return defaultDutyRate, "default"
}

// RateSource is satisfied by *Rates.
type RateSource interface {
	Rate(ctx context.Context, from, to string) decimal.Decimal
}

type Calculator struct {
	rates RateSource
}

func NewCalculator(rates RateSource) *Calculator {
	if rates == nil {
		rates = NewRates()
	}
	return &Calculator{rates: rates}
}

// Shipping returns the shipping cost in the shop currency.
func (c *Calculator) Shipping(price decimal.Decimal, shop *models.ShopConfig) decimal.Decimal {
	if !shop.Shipping.ShipsToHome {
		return decimal.Zero
	}
	if t := shop.Shipping.FreeThreshold; t != nil && price.GreaterThanOrEqual(*t) {
		return decimal.Zero
	}
	return Round(shop.Shipping.BaseCost)
}

// Customs returns duty and import VAT in the reference currency for values already
// expressed in it.
func (c *Calculator) Customs(priceRef, shippingRef decimal.Decimal, region models.Region, category string) (duty, vat decimal.Decimal) {
	if region.DutyFree() {
		return decimal.Zero, decimal.Zero
	}

	value := Round(priceRef.Add(shippingRef))
	duty = decimal.Zero
	if value.GreaterThan(deMinimisRef) {
		rate, _ := DutyRate(category)
		duty = Round(priceRef.Mul(rate))
	}
	vat = Round(value.Add(duty).Mul(importVATRate))
	return duty, vat
}

// Calculate fills a full CostBreakdown for one product sold by shop.
func (c *Calculator) Calculate(ctx context.Context, p models.ProductResult, shop *models.ShopConfig) (*models.CostBreakdown, error) {
	if shop == nil {
		return nil, fmt.Errorf("no shop configuration for %s", p.ShopID)
	}
	if p.Price.IsNegative() {
		return nil, fmt.Errorf("negative price %s for %s/%s", p.Price, p.ShopID, p.ExternalID)
	}
	cur := strings.ToUpper(p.Currency)
	if cur == "" {
		cur = strings.ToUpper(shop.Currency)
	}
	if cur == "" {
		return nil, fmt.Errorf("no currency for %s/%s", p.ShopID, p.ExternalID)
	}

	price := Round(p.Price)
	shipping := c.Shipping(price, shop)

	priceRef, shippingRef := price, shipping
	if cur != ReferenceCurrency {
		toRef := c.rates.Rate(ctx, cur, ReferenceCurrency)
		priceRef = Convert(price, toRef)
		shippingRef = Convert(shipping, toRef)
	}

	dutyRef, vatRef := c.Customs(priceRef, shippingRef, shop.Region, p.Category)

	duty, vat := dutyRef, vatRef
	if cur != ReferenceCurrency && !(dutyRef.IsZero() && vatRef.IsZero()) {
		fromRef := c.rates.Rate(ctx, ReferenceCurrency, cur)
		duty = Convert(dutyRef, fromRef)
		vat = Convert(vatRef, fromRef)
	}

	total := Round(price.Add(shipping).Add(duty).Add(vat))
	totalHome := total
	if cur != HomeCurrency {
		totalHome = Convert(total, c.rates.Rate(ctx, cur, HomeCurrency))
	}

	return &models.CostBreakdown{
		Shipping:     shipping,
		Duty:         duty,
		VAT:          vat,
		Total:        total,
		TotalHome:    totalHome,
		HomeCurrency: HomeCurrency,
	}, nil
}
