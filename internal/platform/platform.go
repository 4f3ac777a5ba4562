package platform

import (
	"context"
	"errors"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/shopspring/decimal"
)

// Kind tags the closed set of adapter implementations.
type Kind int

const (
	KindFeed Kind = iota
	KindScrape
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindFeed:
		return "feed"
	case KindScrape:
		return "scrape"
	case KindRender:
		return "render"
	default:
		return "unknown"
	}
}

// Availability is the answer of CheckAvailability. Price is nil when the product is gone.
type Availability struct {
	InStock bool
	Price   *decimal.Decimal
}

// Adapter is the capability set every shop integration exposes. Failures come back
// inside the Result, never as panics, so fan-out callers can collapse them explicitly.
type Adapter interface {
	ShopID() string
	Kind() Kind
	// Search returns at most q.Limit products in descending relevance.
	Search(ctx context.Context, q models.SearchQuery) Result[[]models.ProductResult]
	// FetchOne fails with errx.ErrNotFound when the product does not exist.
	FetchOne(ctx context.Context, externalID string) Result[*models.ProductResult]
	// BulkImport returns the full catalog snapshot; empty for non-feed variants.
	BulkImport(ctx context.Context) Result[[]models.ProductResult]
	CheckAvailability(ctx context.Context, externalID string) Result[Availability]
}

// AvailabilityOf derives an availability answer from a FetchOne result. A missing
// product is reported as out of stock with no price rather than as an error.
func AvailabilityOf(r Result[*models.ProductResult]) Result[Availability] {
	if r.Err != nil {
		if errors.Is(r.Err, errx.ErrNotFound) {
			return OK(Availability{})
		}
		return Fail[Availability](r.Err)
	}
	if r.Value == nil {
		return OK(Availability{})
	}
	price := r.Value.Price
	return OK(Availability{InStock: r.Value.InStock, Price: &price})
}
