package probes

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"signalguard/internal/egress"
	"signalguard/internal/models"
	"signalguard/internal/store"
)

// IPIntelResult is the normalized shape every provider adapter maps its
// response into.
type IPIntelResult struct {
	IsVPN        bool
	IsProxy      bool
	IsDatacenter bool
	Country      string
}

type ipIntelProvider func(ctx context.Context, client *egress.Manager, apiKey, ip string, timeout time.Duration) (IPIntelResult, error)

// IPIntelProbe answers the VPN/proxy/datacenter question. It
// walks a configured provider chain, stopping at the first provider that
// answers within its own per-provider budget; private/loopback IPs are
// skipped entirely rather than queried.
type IPIntelProbe struct {
	store      store.Store
	egress     *egress.Manager
	providers  []string
	apiKeys    map[string]string
	timeout    time.Duration
	cacheTTL   time.Duration
}

func NewIPIntelProbe(s store.Store, eg *egress.Manager, providers []string, apiKeys map[string]string, timeout, cacheTTL time.Duration) *IPIntelProbe {
	return &IPIntelProbe{store: s, egress: eg, providers: providers, apiKeys: apiKeys, timeout: timeout, cacheTTL: cacheTTL}
}

var providerAdapters = map[string]ipIntelProvider{
	"ipwhois": queryIPWhois,
	"ipapi":   queryIPAPI,
}

// Lookup returns VPN/proxy/datacenter/country signals for ip. A private or
// loopback address returns a zero-value result with no error and is never
// sent to a third-party provider.
func (p *IPIntelProbe) Lookup(ctx context.Context, ip string) (IPIntelResult, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return IPIntelResult{}, models.NewProbeFailure("ipintel", fmt.Errorf("invalid IP %q", ip))
	}
	if parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast() {
		return IPIntelResult{}, nil
	}

	cacheKey := "ipintel:" + ip
	if cached, ok, err := p.store.Get(ctx, cacheKey); err == nil && ok {
		var res IPIntelResult
		if json.Unmarshal(cached, &res) == nil {
			return res, nil
		}
	}

	var lastErr error
	for _, name := range p.providers {
		adapter, ok := providerAdapters[name]
		if !ok {
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		res, err := adapter(probeCtx, p.egress, p.apiKeys[name], ip, p.timeout)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		if payload, marshalErr := json.Marshal(res); marshalErr == nil {
			_ = p.store.Set(ctx, cacheKey, payload, p.cacheTTL)
		}
		return res, nil
	}

	return IPIntelResult{}, models.NewProbeFailure("ipintel", fmt.Errorf("all providers exhausted: %w", lastErr))
}

func queryIPWhois(ctx context.Context, eg *egress.Manager, apiKey, ip string, timeout time.Duration) (IPIntelResult, error) {
	url := fmt.Sprintf("https://ipwho.is/%s", ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return IPIntelResult{}, err
	}
	resp, err := eg.Do(ctx, "ipwhois", 5, 5, req)
	if err != nil {
		return IPIntelResult{}, err
	}
	defer resp.Body.Close()

	var body struct {
		Success   bool   `json:"success"`
		Country   string `json:"country_code"`
		Connection struct {
			ISP string `json:"isp"`
		} `json:"connection"`
		Security struct {
			VPN    bool `json:"vpn"`
			Proxy  bool `json:"proxy"`
			Tor    bool `json:"tor"`
			Hosting bool `json:"hosting"`
		} `json:"security"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return IPIntelResult{}, err
	}
	if !body.Success {
		return IPIntelResult{}, fmt.Errorf("ipwhois lookup unsuccessful for %s", ip)
	}
	return IPIntelResult{
		IsVPN:        body.Security.VPN || body.Security.Tor,
		IsProxy:      body.Security.Proxy,
		IsDatacenter: body.Security.Hosting,
		Country:      body.Country,
	}, nil
}

func queryIPAPI(ctx context.Context, eg *egress.Manager, apiKey, ip string, timeout time.Duration) (IPIntelResult, error) {
	url := fmt.Sprintf("http://ip-api.com/json/%s?fields=status,countryCode,proxy,hosting", ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return IPIntelResult{}, err
	}
	resp, err := eg.Do(ctx, "ipapi", 2, 2, req)
	if err != nil {
		return IPIntelResult{}, err
	}
	defer resp.Body.Close()

	var body struct {
		Status      string `json:"status"`
		CountryCode string `json:"countryCode"`
		Proxy       bool   `json:"proxy"`
		Hosting     bool   `json:"hosting"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return IPIntelResult{}, err
	}
	if body.Status != "success" {
		return IPIntelResult{}, fmt.Errorf("ip-api lookup unsuccessful for %s", ip)
	}
	// ip-api's free tier does not distinguish VPN from generic proxy.
	return IPIntelResult{
		IsProxy:      body.Proxy,
		IsDatacenter: body.Hosting,
		Country:      body.CountryCode,
	}, nil
}
