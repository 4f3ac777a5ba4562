package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dropMessage() Message {
	target := decimal.NewFromInt(400)
	return Message{
		Kind:        KindDrop,
		To:          "anna@example.com",
		WatchID:     "w1",
		ShopName:    "Zalando",
		ProductName: "Tech Fleece Hoodie",
		ProductURL:  "https://www.zalando.se/p/1",
		Currency:    "SEK",
		OldPrice:    decimal.NewFromInt(1000),
		NewPrice:    decimal.NewFromInt(750),
		DropPercent: decimal.NewFromInt(25),
		TargetPrice: &target,
	}
}

func TestSubjects(t *testing.T) {
	msg := dropMessage()
	require.Equal(t, "Price drop: Tech Fleece Hoodie is now 25% off", Subject(msg))

	msg.Kind = KindTarget
	require.Equal(t, "Target price reached: Tech Fleece Hoodie is now 750.00 SEK", Subject(msg))

	msg.Kind = KindBackInStock
	require.Equal(t, "Back in stock: Tech Fleece Hoodie", Subject(msg))
}

func TestBodies(t *testing.T) {
	msg := dropMessage()
	md := Markdown(msg)
	require.Contains(t, md, "~~1000.00 SEK~~")
	require.Contains(t, md, "You save: 250.00 SEK (-25%)")

	html, err := HTML(msg)
	require.NoError(t, err)
	require.Contains(t, html, "<h1>Tech Fleece Hoodie</h1>")
	require.Contains(t, html, `<a href="https://www.zalando.se/p/1">View product</a>`)

	msg.Kind = KindTarget
	require.Contains(t, Markdown(msg), "target price of 400.00 SEK")
}

func TestResendWithoutKey(t *testing.T) {
	_, err := NewResendNotifier("", "alerts@example.com").Notify(context.Background(), dropMessage())
	require.True(t, errors.Is(err, ErrNotConfigured))
}

func TestLogNotifier(t *testing.T) {
	d, err := LogNotifier{}.Notify(context.Background(), dropMessage())
	require.NoError(t, err)
	require.Equal(t, "log:w1", d.MessageID)
}
