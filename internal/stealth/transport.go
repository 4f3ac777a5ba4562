package stealth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"golang.org/x/time/rate"
)

// StealthTransport is an http.RoundTripper that applies the outbound pipeline:
// Fingerprint → RobotsCheck → RateLimiter → CrawlDelay/HumanDelay → Proxy → Send
//
// One base transport is configured at startup; each adapter gets its own copy via
// ForShop so that every shop owns a private token bucket.
type StealthTransport struct {
	Base        http.RoundTripper
	Robots      *RobotsChecker
	Fingerprint *FingerprintPool
	Proxy       *ProxyRotator
	Delay       *HumanDelay
	RateLimiter *rate.Limiter
}

// ForShop returns a copy of t that shares robots cache, fingerprints and proxies but
// waits on the given limiter.
func (t *StealthTransport) ForShop(limiter *rate.Limiter) *StealthTransport {
	clone := *t
	clone.RateLimiter = limiter
	return &clone
}

func (t *StealthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())

	// 1. Apply fingerprint (UA + headers)
	ua := req.Header.Get("User-Agent")
	if t.Fingerprint != nil {
		fp := t.Fingerprint.Next()
		ua = fp.UserAgent
		req.Header.Set("User-Agent", ua)
		for key, vals := range fp.Headers {
			if req.Header.Get(key) == "" {
				for _, v := range vals {
					req.Header.Add(key, v)
				}
			}
		}
	}

	// 2. Check robots.txt
	var crawlDelay time.Duration
	if t.Robots != nil {
		allowed, err := t.Robots.IsAllowed(req.Context(), ua, req.URL.String())
		if err == nil && !allowed {
			logx.Debug().Str("url", req.URL.String()).Msg("blocked by robots.txt")
			return nil, fmt.Errorf("blocked by robots.txt: %s", req.URL.Path)
		}
		crawlDelay = t.Robots.CrawlDelay(req.Context(), ua, req.URL.Scheme+"://"+req.URL.Host)
	}

	// 3. Wait for rate limiter token
	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	// 4. Honour crawl-delay, else apply human-like jitter
	if crawlDelay > 0 {
		if err := sleep(req.Context(), crawlDelay); err != nil {
			return nil, fmt.Errorf("crawl delay: %w", err)
		}
	} else if t.Delay != nil {
		if err := t.Delay.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
	}

	// 5. Route through proxy if configured
	transport := t.Base
	if t.Proxy != nil {
		transport = t.Proxy.Next().Transport()
	}
	if transport == nil {
		transport = http.DefaultTransport
	}

	return transport.RoundTrip(req)
}
