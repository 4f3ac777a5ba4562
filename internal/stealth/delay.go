package stealth

import (
	"context"
	"math/rand/v2"
	"time"
)

// DelayProfile defines a named delay configuration.
type DelayProfile string

const (
	ProfileCautious   DelayProfile = "cautious"
	ProfileNormal     DelayProfile = "normal"
	ProfileAggressive DelayProfile = "aggressive"
	ProfileNone       DelayProfile = "none"
)

// HumanDelay adds randomized jitter between requests to the same storefront.
type HumanDelay struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// NewHumanDelay creates a delay generator for the given profile.
// ProfileNone returns nil, which the transport treats as "no jitter".
func NewHumanDelay(profile DelayProfile) *HumanDelay {
	switch profile {
	case ProfileNone:
		return nil
	case ProfileCautious:
		return &HumanDelay{MinDelay: 2 * time.Second, MaxDelay: 5 * time.Second}
	case ProfileAggressive:
		return &HumanDelay{MinDelay: 100 * time.Millisecond, MaxDelay: 400 * time.Millisecond}
	default: // normal
		return &HumanDelay{MinDelay: 300 * time.Millisecond, MaxDelay: 1200 * time.Millisecond}
	}
}

// Wait sleeps for a random duration within the configured range.
func (h *HumanDelay) Wait(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return sleep(ctx, h.RequestDelay())
}

// RequestDelay returns a random delay for page requests.
func (h *HumanDelay) RequestDelay() time.Duration {
	return h.randomBetween(h.MinDelay, h.MaxDelay)
}

func (h *HumanDelay) randomBetween(min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
