// Package egress provides the outbound HTTP/TCP path used by the IP
// intelligence and SMTP probes. The dialer and optional SOCKS/HTTP
// proxying (golang.org/x/net/proxy) follow a prior residential-proxy
// package, but its rotation concurrency semaphore is replaced here with
// a per-provider token bucket (golang.org/x/time/rate), since this
// service calls a small, named set of IP-intel providers rather than
// rotating through an anonymous proxy pool.
package egress

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	netproxy "golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// Manager owns one rate limiter per named provider and an optional egress
// proxy URL used for every outbound dial.
type Manager struct {
	limiters  map[string]*rate.Limiter
	proxyURL  *url.URL
	client    *http.Client
}

// NewManager builds a Manager. proxyURL may be nil for direct egress.
// Rate and burst are passed per call to Limiter, Wait and Do; each
// provider name gets its own independent bucket, sized by the first call
// for that name (later calls reuse it and ignore their rate and burst).
func NewManager(proxyURL *url.URL) *Manager {
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if proxyURL != nil {
		if pd, err := netproxy.FromURL(proxyURL, dialer); err == nil {
			if cd, ok := pd.(netproxy.ContextDialer); ok {
				transport.DialContext = cd.DialContext
			}
		}
	}

	return &Manager{
		limiters: make(map[string]*rate.Limiter),
		proxyURL: proxyURL,
		client:   &http.Client{Timeout: 20 * time.Second, Transport: transport},
	}
}

// Limiter returns (creating if necessary) the token bucket for provider,
// allowing ratePerSecond requests/sec with the given burst.
func (m *Manager) Limiter(provider string, ratePerSecond float64, burst int) *rate.Limiter {
	if l, ok := m.limiters[provider]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	m.limiters[provider] = l
	return l
}

// Wait blocks until provider's bucket admits one request or ctx expires.
func (m *Manager) Wait(ctx context.Context, provider string, ratePerSecond float64, burst int) error {
	return m.Limiter(provider, ratePerSecond, burst).Wait(ctx)
}

// Do performs req, respecting the provider's token bucket first.
func (m *Manager) Do(ctx context.Context, provider string, ratePerSecond float64, burst int, req *http.Request) (*http.Response, error) {
	if err := m.Wait(ctx, provider, ratePerSecond, burst); err != nil {
		return nil, err
	}
	return m.client.Do(req.WithContext(ctx))
}

// DialContext opens a raw TCP connection respecting the configured egress
// proxy, used by the SMTP probe instead of going through the HTTP client.
func (m *Manager) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if m.proxyURL == nil {
		return dialer.DialContext(ctx, network, addr)
	}
	pd, err := netproxy.FromURL(m.proxyURL, dialer)
	if err != nil {
		return dialer.DialContext(ctx, network, addr)
	}
	if cd, ok := pd.(netproxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}
	return pd.Dial(network, addr)
}
