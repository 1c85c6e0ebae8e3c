// Package engine implements the risk engine orchestrator: it
// parses and normalizes the input, fans out the enabled probes under one
// overall wall-clock budget, merges partial results fail-open, and hands
// the assembled Signals to the scorer. An earlier ad-hoc
// sync.WaitGroup/mutex fan-out is generalized here into
// golang.org/x/sync/errgroup, since every probe in this engine is
// genuinely independent and none needs a cross-goroutine shared analysis
// struct under a single mutex.
package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"signalguard/internal/disposable"
	"signalguard/internal/email"
	"signalguard/internal/metrics"
	"signalguard/internal/models"
	"signalguard/internal/probes"
	"signalguard/internal/scoring"
)

// Engine wires every probe and the scorer behind the single analyse
// entry point. It holds no per-request mutable state.
type Engine struct {
	disposable *disposable.Registry
	dns        *probes.DNSProbe
	whois      *probes.WHOISProbe
	ipintel    *probes.IPIntelProbe
	smtp       *probes.SMTPProbe
	pattern    *probes.PatternProbe
	velocity   *probes.VelocityProbe
	scorer     *scoring.Scorer

	overallBudget    time.Duration
	entropyThreshold float64
	whoisNewDomainDays int
	smtpEnabled      bool
	backgroundEnrichmentEnabled bool
}

// Config bundles the constructor dependencies. Kept as a struct rather
// than a long positional parameter list because every field is required.
type Config struct {
	Disposable         *disposable.Registry
	DNS                *probes.DNSProbe
	WHOIS              *probes.WHOISProbe
	IPIntel            *probes.IPIntelProbe
	SMTP               *probes.SMTPProbe
	Pattern            *probes.PatternProbe
	Velocity           *probes.VelocityProbe
	Scorer             *scoring.Scorer
	OverallBudget      time.Duration
	EntropyThreshold   float64
	WHOISNewDomainDays int
	SMTPEnabled        bool
	BackgroundEnrichmentEnabled bool
}

func New(c Config) *Engine {
	return &Engine{
		disposable:                  c.Disposable,
		dns:                         c.DNS,
		whois:                       c.WHOIS,
		ipintel:                     c.IPIntel,
		smtp:                        c.SMTP,
		pattern:                     c.Pattern,
		velocity:                    c.Velocity,
		scorer:                      c.Scorer,
		overallBudget:               c.OverallBudget,
		entropyThreshold:            c.EntropyThreshold,
		whoisNewDomainDays:          c.WHOISNewDomainDays,
		smtpEnabled:                 c.SMTPEnabled,
		backgroundEnrichmentEnabled: c.BackgroundEnrichmentEnabled,
	}
}

// Analyse runs the full probe/scoring pipeline for input.
// In ModeFast, the slow probes (WHOIS, IP intel, SMTP) are skipped; the
// caller is responsible for pushing an EnrichmentJob and marking
// envelope.Enrichment accordingly.
func (e *Engine) Analyse(ctx context.Context, input models.EmailInput, mode models.AnalyseMode) (models.Envelope, error) {
	parsed, err := email.Parse(input.RawEmail)
	if err != nil {
		return models.Envelope{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.overallBudget)
	defer cancel()

	sig := e.runProbes(ctx, parsed, input, mode)

	summary, reasons := e.scorer.Score(sig)

	envelope := models.Envelope{
		Email:           input.RawEmail,
		NormalizedEmail: parsed.Normalized,
		Reasons:         reasons,
		RiskSummary:     summary,
		Signals:         sig,
		Enrichment:      models.Enrichment{Status: models.EnrichmentDisabled},
	}

	// Remember this address for future similarity/sequential checks. The
	// only hard rejection (invalid syntax) already returned above, so
	// every envelope reaching this point gets remembered regardless of
	// its scored action, including BLOCK.
	_ = e.pattern.Remember(ctx, parsed.Normalized, parsed.Domain)

	return envelope, nil
}

// runProbes fans out every enabled probe concurrently and merges results
// fail-open: a probe error leaves its Signals field nil rather than
// aborting the whole call.
func (e *Engine) runProbes(ctx context.Context, parsed models.ParsedEmail, input models.EmailInput, mode models.AnalyseMode) models.Signals {
	var (
		mu  sync.Mutex
		sig models.Signals
	)

	set := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}

	g, gctx := errgroup.WithContext(ctx)

	// Cheap, in-memory signals never suspend and run outside the group.
	isDisposable := e.disposable.IsDisposable(parsed.Domain)
	sig.IsDisposable = models.BoolPtr(isDisposable)

	entropy := probes.ShannonEntropy(parsed.LocalPart)
	sig.EntropyScore = models.FloatPtr(entropy)
	sig.IsHighEntropy = models.BoolPtr(probes.IsHighEntropy(entropy, e.entropyThreshold))
	sig.IsAlias = models.BoolPtr(parsed.IsAlias)

	g.Go(func() error {
		found, err := e.dns.HasMX(gctx, parsed.Domain)
		if err != nil {
			recordProbeFailure("dns")
			return nil
		}
		set(func() { sig.MXFound = models.BoolPtr(found) })
		return nil
	})

	g.Go(func() error {
		result, err := e.pattern.Detect(gctx, parsed.Normalized, parsed.LocalPart, parsed.Domain)
		if err != nil {
			recordProbeFailure("pattern")
			return nil
		}
		set(func() {
			sig.IsSequential = models.BoolPtr(result.IsSequential)
			sig.HasNumberSuffix = models.BoolPtr(result.HasNumberSuffix)
			sig.IsSimilarToRecent = models.BoolPtr(result.IsSimilarToRecent)
			sig.SimilarityScore = models.FloatPtr(result.SimilarityScore)
			sig.PatternDetected = result.PatternDetected
		})
		return nil
	})

	g.Go(func() error {
		breach, err := e.velocity.Check(gctx, input.IP, parsed.Domain)
		if err != nil {
			recordProbeFailure("velocity")
			return nil
		}
		set(func() { sig.VelocityBreach = models.BoolPtr(breach) })
		return nil
	})

	if input.IP != "" && mode == models.ModeFull {
		g.Go(func() error {
			result, err := e.ipintel.Lookup(gctx, input.IP)
			if err != nil {
				recordProbeFailure("ipintel")
				return nil
			}
			set(func() {
				sig.IsVPN = models.BoolPtr(result.IsVPN)
				sig.IsProxy = models.BoolPtr(result.IsProxy)
				sig.IsDatacenter = models.BoolPtr(result.IsDatacenter)
				if result.Country != "" {
					sig.IPCountry = models.StrPtr(result.Country)
				}
			})
			return nil
		})
	}

	if mode == models.ModeFull {
		g.Go(func() error {
			days, err := e.whois.AgeDays(gctx, parsed.Domain)
			if err != nil {
				recordProbeFailure("whois")
				return nil
			}
			set(func() {
				sig.DomainAgeDays = models.IntPtr(days)
				sig.IsNewDomain = models.BoolPtr(days <= e.whoisNewDomainDays)
			})
			return nil
		})

		if e.smtpEnabled {
			g.Go(func() error {
				mxHost, err := e.primaryMXHost(gctx, parsed.Domain)
				if err != nil {
					recordProbeFailure("smtp")
					return nil
				}
				deliverable, valid, catchAll, err := e.smtp.Probe(gctx, mxHost, parsed.Normalized, parsed.Domain)
				if err != nil {
					recordProbeFailure("smtp")
					return nil
				}
				set(func() {
					sig.SMTPDeliverable = models.BoolPtr(deliverable)
					sig.SMTPValid = models.BoolPtr(valid)
					sig.CatchAllDomain = models.BoolPtr(catchAll)
				})
				return nil
			})
		}
	}

	_ = g.Wait()
	return sig
}

func (e *Engine) primaryMXHost(ctx context.Context, domain string) (string, error) {
	// The DNS probe already resolved has-MX; the SMTP probe needs the
	// actual hostname, so it re-resolves directly rather than plumbing the
	// full record set through the has-MX boolean path.
	return probes.PrimaryMXHost(ctx, domain)
}

func recordProbeFailure(probe string) {
	metrics.ProbeFailuresTotal.WithLabelValues(probe).Inc()
}
