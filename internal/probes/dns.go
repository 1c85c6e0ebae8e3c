// Package probes implements the signal-producing components: DNS/MX,
// WHOIS domain age, IP intelligence, SMTP deliverability, entropy, pattern
// detection and velocity. Each probe is an independent, context-aware unit
// with its own cache and timeout, generalized behind a store-backed cache
// instead of a bare in-process map.
package probes

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/miekg/dns"

	"signalguard/internal/models"
	"signalguard/internal/store"
)

// DNSProbe answers the has-MX question, caching results in the
// store keyed by domain.
type DNSProbe struct {
	store      store.Store
	cacheTTL   time.Duration
	timeout    time.Duration
	resolvers  []string
}

func NewDNSProbe(s store.Store, resolvers []string, timeout, cacheTTL time.Duration) *DNSProbe {
	if len(resolvers) == 0 {
		resolvers = []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	return &DNSProbe{store: s, cacheTTL: cacheTTL, timeout: timeout, resolvers: resolvers}
}

// HasMX reports whether domain has at least one MX record. A transport
// failure surfaces as a *models.ProbeFailure and the signal is left null
// by the caller.
func (p *DNSProbe) HasMX(ctx context.Context, domain string) (bool, error) {
	cacheKey := "mx:" + domain
	if cached, ok, err := p.store.Get(ctx, cacheKey); err == nil && ok {
		return string(cached) == "1", nil
	}

	found, err := p.lookupMX(ctx, domain)
	if err != nil {
		return false, models.NewProbeFailure("dns", err)
	}

	val := "0"
	if found {
		val = "1"
	}
	_ = p.store.Set(ctx, cacheKey, []byte(val), p.cacheTTL)
	return found, nil
}

func (p *DNSProbe) lookupMX(ctx context.Context, domain string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	m.RecursionDesired = true

	c := new(dns.Client)
	c.Timeout = p.timeout

	var lastErr error
	for _, resolver := range p.resolvers {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}
		in, _, err := c.ExchangeContext(ctx, m, resolver)
		if err != nil {
			lastErr = err
			continue
		}
		for _, ans := range in.Answer {
			if _, ok := ans.(*dns.MX); ok {
				return true, nil
			}
		}
		return false, nil
	}
	return false, lastErr
}

// PrimaryMXHost resolves domain's lowest-preference MX host, for use by
// the SMTP probe which needs an actual hostname rather than a boolean.
func PrimaryMXHost(ctx context.Context, domain string) (string, error) {
	mxRecords, err := net.DefaultResolver.LookupMX(ctx, domain)
	if err != nil {
		return "", fmt.Errorf("mx lookup failed: %w", err)
	}
	if len(mxRecords) == 0 {
		return "", fmt.Errorf("no MX records for %s", domain)
	}
	sort.Slice(mxRecords, func(i, j int) bool { return mxRecords[i].Pref < mxRecords[j].Pref })
	return mxRecords[0].Host, nil
}
