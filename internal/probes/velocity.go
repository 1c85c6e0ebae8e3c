package probes

import (
	"context"
	"net"
	"strconv"
	"time"

	"signalguard/internal/store"
)

// VelocityProbe tracks per-IP and per-domain signup rate. Major
// mailbox providers are allowlisted for the domain scope only, since
// gmail.com/outlook.com-scale domains would otherwise trip the domain
// counter on legitimate traffic alone.
type VelocityProbe struct {
	store            store.Store
	ipLimit          int
	domainLimit      int
	bucketWidth      time.Duration
	domainAllowlist  map[string]bool
}

func NewVelocityProbe(s store.Store, ipLimit, domainLimit int, bucketWidth time.Duration, domainAllowlist []string) *VelocityProbe {
	allow := make(map[string]bool, len(domainAllowlist))
	for _, d := range domainAllowlist {
		allow[d] = true
	}
	return &VelocityProbe{
		store:           s,
		ipLimit:         ipLimit,
		domainLimit:     domainLimit,
		bucketWidth:     bucketWidth,
		domainAllowlist: allow,
	}
}

// Check increments both counters and reports whether either has breached
// its configured per-hour limit. TTL on each bucket is 2x the bucket
// width; a check reads only the current bucket's counter, never the
// previous bucket's.
func (p *VelocityProbe) Check(ctx context.Context, ip, domain string) (breach bool, err error) {
	bucket := time.Now().Truncate(p.bucketWidth).Unix()

	if ip != "" && isNonPrivateIP(ip) {
		key := "velocity:ip:" + ip + ":" + strconv.FormatInt(bucket, 10)
		count, incrErr := p.store.IncrWithExpire(ctx, key, 2*p.bucketWidth)
		if incrErr != nil {
			return false, incrErr
		}
		if int(count) > p.ipLimit {
			breach = true
		}
	}

	if domain != "" && !p.domainAllowlist[domain] {
		key := "velocity:domain:" + domain + ":" + strconv.FormatInt(bucket, 10)
		count, incrErr := p.store.IncrWithExpire(ctx, key, 2*p.bucketWidth)
		if incrErr != nil {
			return breach, incrErr
		}
		if int(count) > p.domainLimit {
			breach = true
		}
	}

	return breach, nil
}

// isNonPrivateIP reports whether ip should count toward the IP-scoped
// velocity counter. Private, loopback and link-local addresses are
// excluded since they represent shared NAT/internal traffic rather than
// a single real-world signup source.
func isNonPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !parsed.IsPrivate() && !parsed.IsLoopback() && !parsed.IsLinkLocalUnicast()
}
