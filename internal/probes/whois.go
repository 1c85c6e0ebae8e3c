package probes

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/likexian/whois"

	"signalguard/internal/models"
	"signalguard/internal/store"
)

// WHOISProbe answers the domain-age question. Grounded on
// github.com/likexian/whois, the same library used elsewhere in the
// example pack for registrar lookups.
type WHOISProbe struct {
	store    store.Store
	client   *whois.Client
	cacheTTL time.Duration
	timeout  time.Duration
}

func NewWHOISProbe(s store.Store, timeout, cacheTTL time.Duration) *WHOISProbe {
	client := whois.NewClient()
	client.SetTimeout(timeout)
	return &WHOISProbe{store: s, client: client, cacheTTL: cacheTTL, timeout: timeout}
}

var creationDatePattern = regexp.MustCompile(`(?i)(?:creation date|created on|created|registered on):\s*([0-9]{4}-[0-9]{2}-[0-9]{2})`)

// AgeDays returns the domain's age in days since registration. A raw
// WHOIS record without a recognizable creation date is treated as a
// probe failure rather than age=0, so the scorer never mistakes "unknown"
// for "brand new".
func (p *WHOISProbe) AgeDays(ctx context.Context, domain string) (int, error) {
	cacheKey := "whois:" + domain
	if cached, ok, err := p.store.Get(ctx, cacheKey); err == nil && ok {
		var days int
		if _, scanErr := fmt.Sscanf(string(cached), "%d", &days); scanErr == nil {
			return days, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.client.Whois(domain)
	if err != nil {
		return 0, models.NewProbeFailure("whois", err)
	}

	match := creationDatePattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, models.NewProbeFailure("whois", fmt.Errorf("no creation date found in whois record for %s", domain))
	}

	created, err := time.Parse("2006-01-02", match[1])
	if err != nil {
		return 0, models.NewProbeFailure("whois", err)
	}

	days := int(time.Since(created).Hours() / 24)
	if days < 0 {
		days = 0
	}

	_ = p.store.Set(ctx, cacheKey, []byte(fmt.Sprintf("%d", days)), p.cacheTTL)
	return days, nil
}
