// Package notify delivers price alerts to watchers.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
)

type Kind string

const (
	KindTarget      Kind = "target"
	KindDrop        Kind = "drop"
	KindBackInStock Kind = "back_in_stock"
)

// Message carries the facts of one alert.
type Message struct {
	Kind        Kind
	To          string
	WatchID     string
	ShopID      string
	ShopName    string
	ProductID   string
	ProductName string
	ProductURL  string
	Currency    string
	OldPrice    decimal.Decimal
	NewPrice    decimal.Decimal
	DropPercent decimal.Decimal
	TargetPrice *decimal.Decimal
}

// Delivery is the receipt of a sent message.
type Delivery struct {
	MessageID string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) (Delivery, error)
}

// Subject returns the mail subject line for msg.
func Subject(msg Message) string {
	switch msg.Kind {
	case KindTarget:
		return fmt.Sprintf("Target price reached: %s is now %s %s", msg.ProductName, msg.NewPrice.StringFixed(2), msg.Currency)
	case KindBackInStock:
		return fmt.Sprintf("Back in stock: %s", msg.ProductName)
	default:
		return fmt.Sprintf("Price drop: %s is now %s%% off", msg.ProductName, msg.DropPercent.Round(0).String())
	}
}

// Markdown renders the plain-text body. It doubles as the source of the HTML body.
func Markdown(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", msg.ProductName)

	switch msg.Kind {
	case KindTarget:
		fmt.Fprintf(&b, "An item on your watchlist at **%s** reached your target price", msg.ShopName)
		if msg.TargetPrice != nil {
			fmt.Fprintf(&b, " of %s %s", msg.TargetPrice.StringFixed(2), msg.Currency)
		}
		b.WriteString(".\n\n")
	case KindBackInStock:
		fmt.Fprintf(&b, "An item on your watchlist is back in stock at **%s**.\n\n", msg.ShopName)
	default:
		fmt.Fprintf(&b, "An item on your watchlist just got cheaper at **%s**.\n\n", msg.ShopName)
	}

	if msg.Kind != KindBackInStock {
		fmt.Fprintf(&b, "- Old price: ~~%s %s~~\n", msg.OldPrice.StringFixed(2), msg.Currency)
	}
	fmt.Fprintf(&b, "- New price: **%s %s**\n", msg.NewPrice.StringFixed(2), msg.Currency)
	if msg.OldPrice.GreaterThan(msg.NewPrice) {
		saved := msg.OldPrice.Sub(msg.NewPrice)
		fmt.Fprintf(&b, "- You save: %s %s (-%s%%)\n", saved.StringFixed(2), msg.Currency, msg.DropPercent.Round(0).String())
	}
	if msg.ProductURL != "" {
		fmt.Fprintf(&b, "\n[View product](%s)\n", msg.ProductURL)
	}
	b.WriteString("\n---\n\nYou get this email because the item is on your Fashion Finder watchlist. Remove it to stop the alerts.\n")
	return b.String()
}

// HTML converts the markdown body.
func HTML(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(msg)), &buf); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return buf.String(), nil
}

// LogNotifier writes alerts to the log instead of sending them. It is used when no
// mail provider is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, msg Message) (Delivery, error) {
	logx.Info().
		Str("kind", string(msg.Kind)).
		Str("to", msg.To).
		Str("shop", msg.ShopID).
		Str("product", msg.ProductID).
		Str("new_price", msg.NewPrice.StringFixed(2)).
		Msg(Subject(msg))
	return Delivery{MessageID: "log:" + msg.WatchID}, nil
}
