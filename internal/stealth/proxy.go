package stealth

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
)

// ProxyProvider abstracts a proxy backend.
type ProxyProvider interface {
	Transport() http.RoundTripper
	Name() string
}

// ProxyRotator cycles through multiple proxy providers.
type ProxyRotator struct {
	providers []ProxyProvider
	mu        sync.Mutex
	idx       int
}

// NewProxyRotator creates a rotator from a list of providers.
// Returns nil if no providers are given.
func NewProxyRotator(providers []ProxyProvider) *ProxyRotator {
	if len(providers) == 0 {
		return nil
	}
	return &ProxyRotator{providers: providers}
}

// Next returns the next proxy provider in round-robin order.
func (p *ProxyRotator) Next() ProxyProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	provider := p.providers[p.idx%len(p.providers)]
	p.idx++
	return provider
}

// Len reports how many providers the rotator cycles through.
func (p *ProxyRotator) Len() int {
	if p == nil {
		return 0
	}
	return len(p.providers)
}

// DecodoProvider implements Decodo residential proxy routing.
type DecodoProvider struct {
	Username     string
	Password     string
	Country      string // e.g. "se"
	City         string // e.g. "stockholm" (optional)
	UseUnblocker bool
	transport    http.RoundTripper
	once         sync.Once
}

func (d *DecodoProvider) Name() string {
	if d.UseUnblocker {
		return "decodo-unblocker"
	}
	return "decodo-rotating"
}

func (d *DecodoProvider) Transport() http.RoundTripper {
	d.once.Do(func() {
		d.transport = &http.Transport{
			Proxy:             http.ProxyURL(d.buildProxyURL()),
			DisableKeepAlives: true, // new IP per request
		}
	})
	return d.transport
}

func (d *DecodoProvider) buildProxyURL() *url.URL {
	user := fmt.Sprintf("user-%s-country-%s", d.Username, d.Country)
	if d.City != "" {
		user += fmt.Sprintf("-city-%s", d.City)
	}
	host := "gate.decodo.com:7000"
	if d.UseUnblocker {
		host = "unblock.decodo.com:60000"
		user = d.Username
	}
	return &url.URL{
		Scheme: "http",
		User:   url.UserPassword(user, d.Password),
		Host:   host,
	}
}

// HTTPProxyProvider wraps a generic HTTP/SOCKS5 proxy URL.
type HTTPProxyProvider struct {
	RawURL    string
	Label     string
	transport http.RoundTripper
	once      sync.Once
	parseErr  error
}

func (h *HTTPProxyProvider) Name() string { return h.Label }

func (h *HTTPProxyProvider) Transport() http.RoundTripper {
	h.once.Do(func() {
		proxyURL, err := url.Parse(h.RawURL)
		if err != nil {
			h.parseErr = err
			h.transport = http.DefaultTransport
			return
		}
		h.transport = &http.Transport{
			Proxy:             http.ProxyURL(proxyURL),
			DisableKeepAlives: true,
		}
	})
	return h.transport
}

// Err returns any error from parsing the proxy URL.
func (h *HTTPProxyProvider) Err() error {
	h.Transport()
	return h.parseErr
}

// ParseProxyList turns a comma separated list of proxy URLs into providers.
func ParseProxyList(list string) ([]ProxyProvider, error) {
	var out []ProxyProvider
	for i, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		p, err := newHTTPProxy(raw, i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadProxyFile reads one proxy URL per line. Blank lines and # comments are skipped.
func LoadProxyFile(path string) ([]ProxyProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var out []ProxyProvider
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := newHTTPProxy(line, len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read proxy file: %w", err)
	}
	return out, nil
}

func newHTTPProxy(raw string, i int) (*HTTPProxyProvider, error) {
	p := &HTTPProxyProvider{RawURL: raw, Label: fmt.Sprintf("proxy-%d", i)}
	if err := p.Err(); err != nil {
		return nil, fmt.Errorf("proxy %q: %w", raw, err)
	}
	return p, nil
}
