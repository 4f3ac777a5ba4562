// Package monitor re-checks watched products in paced batches and decides which
// price events deserve a notification.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/notify"
	"github.com/andreasragnarsson/fashion-finder/internal/observability"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = time.Second
)

var errNoPrice = errors.New("availability check returned no price")

// Adapters resolves the owning adapter of a watch entry.
type Adapters interface {
	Adapter(id string) (platform.Adapter, error)
	Config(id string) (*models.ShopConfig, bool)
}

// Watches is the slice of the watch store the monitor needs.
type Watches interface {
	ActiveWatches(ctx context.Context) ([]models.WatchEntry, error)
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal, inStock bool) error
}

// Notification records one decided alert and how its delivery went.
type Notification struct {
	WatchID  string          `json:"watch_id"`
	Kind     notify.Kind     `json:"kind"`
	To       string          `json:"to"`
	Delivery notify.Delivery `json:"delivery"`
	Error    string          `json:"error,omitempty"`
}

// Report summarises one monitoring cycle.
type Report struct {
	Checked       int                        `json:"checked"`
	Failed        int                        `json:"failed"`
	Outcomes      []models.PriceCheckOutcome `json:"outcomes"`
	Notifications []Notification             `json:"notifications"`
}

type Option func(*Monitor)

func WithBatching(size int, delay time.Duration) Option {
	return func(m *Monitor) {
		if size > 0 {
			m.batchSize = size
		}
		if delay >= 0 {
			m.batchDelay = delay
		}
	}
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics }
}

type Monitor struct {
	adapters Adapters
	watches  Watches
	notifier notify.Notifier
	metrics  *observability.Metrics

	batchSize  int
	batchDelay time.Duration
	now        func() time.Time
}

func New(adapters Adapters, watches Watches, notifier notify.Notifier, opts ...Option) *Monitor {
	m := &Monitor{
		adapters:   adapters,
		watches:    watches,
		notifier:   notifier,
		batchSize:  DefaultBatchSize,
		batchDelay: DefaultBatchDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run checks every active watch, writes the new facts back, and delivers the
// notifications it decides on. Write-back and delivery failures are logged and
// recorded but never stop the cycle.
func (m *Monitor) Run(ctx context.Context) (*Report, error) {
	entries, err := m.watches.ActiveWatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active watches: %w", err)
	}
	platform.ReportProgressf(ctx, "Checking %d watched products...", len(entries))

	outcomes := m.CheckAll(ctx, entries)
	report := &Report{Checked: len(entries), Failed: len(entries) - countFound(outcomes)}

	for i, o := range outcomes {
		if o == nil {
			continue
		}
		entry := entries[i]
		report.Outcomes = append(report.Outcomes, *o)

		if err := m.watches.UpdatePrice(ctx, entry.ID, o.NewPrice, o.InStock); err != nil {
			logx.Warn().Err(err).Str("watch", entry.ID).Msg("price write-back failed")
		}

		kind, ok := Decide(entry, *o)
		if !ok {
			continue
		}
		report.Notifications = append(report.Notifications, m.deliver(ctx, entry, *o, kind))
	}
	return report, nil
}

// CheckAll checks entries in batches. Checks within a batch run concurrently and
// batches are separated by the pacing delay. The result is index-aligned with
// entries; a nil slot means the check produced no outcome.
func (m *Monitor) CheckAll(ctx context.Context, entries []models.WatchEntry) []*models.PriceCheckOutcome {
	out := make([]*models.PriceCheckOutcome, len(entries))
	for start := 0; start < len(entries); start += m.batchSize {
		if start > 0 && m.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(m.batchDelay):
			}
		}
		end := min(start+m.batchSize, len(entries))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				o, err := m.Check(ctx, entries[i])
				m.metrics.PriceCheck(err == nil)
				if err != nil {
					logx.Shop(entries[i].ShopID).Warn().Err(err).Str("watch", entries[i].ID).Msg("price check failed")
					return nil
				}
				out[i] = o
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

// Check re-reads the availability of one watched product.
func (m *Monitor) Check(ctx context.Context, entry models.WatchEntry) (*models.PriceCheckOutcome, error) {
	a, err := m.adapters.Adapter(entry.ShopID)
	if err != nil {
		return nil, err
	}
	av, err := platform.Guard(func() platform.Result[platform.Availability] {
		return a.CheckAvailability(ctx, entry.ProductID)
	}).Unwrap()
	if err != nil {
		return nil, err
	}
	if av.Price == nil {
		return nil, errNoPrice
	}
	o := Outcome(entry, *av.Price, av.InStock, m.now())
	return &o, nil
}

// Outcome compares a fresh price with the entry's last known one.
func Outcome(entry models.WatchEntry, newPrice decimal.Decimal, inStock bool, now time.Time) models.PriceCheckOutcome {
	old := entry.CurrentPrice
	drop := old.Sub(newPrice).Round(2)
	percent := decimal.Zero
	if old.IsPositive() {
		percent = drop.Div(old).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return models.PriceCheckOutcome{
		WatchID:       entry.ID,
		ShopID:        entry.ShopID,
		ProductID:     entry.ProductID,
		OldPrice:      old,
		NewPrice:      newPrice,
		Currency:      entry.Currency,
		DropAmount:    drop,
		DropPercent:   percent,
		Dropped:       newPrice.LessThan(old),
		TargetReached: entry.TargetPrice != nil && newPrice.LessThanOrEqual(*entry.TargetPrice),
		InStock:       inStock,
		WasInStock:    entry.InStock,
		CheckedAt:     now,
	}
}

// Decide applies the notification priority: target reached, then a drop the watcher
// opted into, then back in stock at a price that did not rise. A higher price never
// notifies.
func Decide(entry models.WatchEntry, o models.PriceCheckOutcome) (notify.Kind, bool) {
	switch {
	case o.TargetReached:
		return notify.KindTarget, true
	case o.Dropped && entry.NotifyAnyDrop:
		return notify.KindDrop, true
	case o.InStock && !o.WasInStock && entry.NotifyBackInStock && !o.DropAmount.IsNegative():
		return notify.KindBackInStock, true
	}
	return "", false
}

func (m *Monitor) deliver(ctx context.Context, entry models.WatchEntry, o models.PriceCheckOutcome, kind notify.Kind) Notification {
	msg := notify.Message{
		Kind:        kind,
		To:          entry.UserEmail,
		WatchID:     entry.ID,
		ShopID:      entry.ShopID,
		ShopName:    entry.ShopID,
		ProductID:   entry.ProductID,
		ProductName: entry.ProductName,
		ProductURL:  entry.ProductURL,
		Currency:    o.Currency,
		OldPrice:    o.OldPrice,
		NewPrice:    o.NewPrice,
		DropPercent: o.DropPercent,
		TargetPrice: entry.TargetPrice,
	}
	if cfg, ok := m.adapters.Config(entry.ShopID); ok {
		msg.ShopName = cfg.DisplayName
	}

	n := Notification{WatchID: entry.ID, Kind: kind, To: entry.UserEmail}
	d, err := m.notifier.Notify(ctx, msg)
	m.metrics.Notification(string(kind), err == nil)
	if err != nil {
		logx.Warn().Err(err).Str("watch", entry.ID).Str("kind", string(kind)).Msg("notification failed")
		n.Error = err.Error()
		return n
	}
	n.Delivery = d
	return n
}

func countFound(outcomes []*models.PriceCheckOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o != nil {
			n++
		}
	}
	return n
}
