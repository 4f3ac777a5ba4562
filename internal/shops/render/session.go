package render

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Probe locates a consent button. With Text set, Selector is matched against
// elements whose text matches the Text pattern.
type Probe struct {
	Selector string
	Text     string
}

// DefaultConsent covers the common Swedish and international cookie banners.
var DefaultConsent = []Probe{
	{Selector: "button", Text: "Acceptera"},
	{Selector: "button", Text: "Accept"},
	{Selector: "button", Text: "Godkänn"},
	{Selector: `[data-testid="cookie-accept"]`},
	{Selector: "#onetrust-accept-btn-handler"},
}

// PageOptions describe how long to wait for a rendered page to settle.
type PageOptions struct {
	WaitSelector string
	WaitTimeout  time.Duration
	Settle       time.Duration
	Consent      []Probe
}

// Renderer returns the document of a page after client-side scripts ran.
type Renderer interface {
	Render(ctx context.Context, pageURL string, opts PageOptions) (string, error)
	Close() error
}

// Session owns one headless browser, launched on first use and reused for every
// navigation of the adapter that owns it. Navigations are serialized.
type Session struct {
	bin       string
	userAgent string

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewSession(browserBin, userAgent string) *Session {
	return &Session{bin: browserBin, userAgent: userAgent}
}

func (s *Session) start() error {
	if s.browser != nil {
		return nil
	}
	l := launcher.New().Headless(true).Logger(io.Discard)
	if s.bin != "" {
		l = l.Bin(s.bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect browser: %w", err)
	}
	s.launcher = l
	s.browser = browser
	return nil
}

func (s *Session) Render(ctx context.Context, pageURL string, opts PageOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.start(); err != nil {
		return "", err
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1920, Height: 1080}); err != nil {
		return "", fmt.Errorf("set viewport: %w", err)
	}
	if s.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      s.userAgent,
			AcceptLanguage: "sv-SE,sv;q=0.9,en;q=0.8",
		}); err != nil {
			return "", fmt.Errorf("set user agent: %w", err)
		}
	}

	p := page.Context(ctx)
	if err := p.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}

	if opts.WaitSelector != "" {
		wait := opts.WaitTimeout
		if wait <= 0 {
			wait = 15 * time.Second
		}
		if _, err := p.Timeout(wait).Element(opts.WaitSelector); err != nil {
			logx.Debug().Str("url", pageURL).Str("selector", opts.WaitSelector).Msg("content selector never appeared")
		}
	}
	if err := pause(ctx, opts.Settle); err != nil {
		return "", err
	}

	if err := dismissConsent(ctx, p, opts.Consent); err != nil {
		return "", err
	}

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("get page HTML: %w", err)
	}
	return html, nil
}

// dismissConsent clicks the first visible probe and gives the overlay a moment to go.
func dismissConsent(ctx context.Context, p *rod.Page, probes []Probe) error {
	for _, probe := range probes {
		var (
			el  *rod.Element
			err error
		)
		short := p.Timeout(time.Second)
		if probe.Text != "" {
			el, err = short.ElementR(probe.Selector, probe.Text)
		} else {
			el, err = short.Element(probe.Selector)
		}
		if err != nil {
			continue
		}
		if visible, err := el.Visible(); err != nil || !visible {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			continue
		}
		return pause(ctx, 500*time.Millisecond)
	}
	return nil
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

// Close releases the browser. The session can be restarted by a later Render.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.launcher.Cleanup()
	s.browser = nil
	s.launcher = nil
	return err
}
