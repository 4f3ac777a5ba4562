package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

var ErrNotConfigured = errors.New("mail provider not configured")

// ResendNotifier sends alerts as email through Resend.
type ResendNotifier struct {
	client *resend.Client
	from   string
}

func NewResendNotifier(apiKey, from string) *ResendNotifier {
	if apiKey == "" {
		return &ResendNotifier{from: from}
	}
	return &ResendNotifier{client: resend.NewClient(apiKey), from: from}
}

func (n *ResendNotifier) Notify(ctx context.Context, msg Message) (Delivery, error) {
	if n.client == nil {
		return Delivery{}, ErrNotConfigured
	}
	if msg.To == "" {
		return Delivery{}, errors.New("message has no recipient")
	}
	html, err := HTML(msg)
	if err != nil {
		return Delivery{}, err
	}

	sent, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{msg.To},
		Subject: Subject(msg),
		Html:    html,
		Text:    Markdown(msg),
	})
	if err != nil {
		return Delivery{}, fmt.Errorf("send %s alert: %w", msg.Kind, err)
	}
	return Delivery{MessageID: sent.Id}, nil
}
