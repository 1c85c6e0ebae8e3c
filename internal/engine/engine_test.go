package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalguard/internal/disposable"
	"signalguard/internal/egress"
	"signalguard/internal/models"
	"signalguard/internal/probes"
	"signalguard/internal/scoring"
	"signalguard/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, _ := newTestEngineWithStore(t)
	return e
}

func newTestEngineWithStore(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	reg, _, err := disposable.Load(context.Background(), "", time.Second)
	require.NoError(t, err)

	eg := egress.NewManager(nil)

	weights := scoring.Weights{
		DisposableDomain: 90, NoMX: 100, SMTPUndeliverable: 70, NewDomain: 60,
		VPNOrProxy: 50, PatternSequential: 40, VelocityBreach: 40, PatternSimilar: 35,
		HighEntropy: 30, DatacenterIP: 30, PatternNumberSuffix: 25, SMTPCatchAll: 20,
		EntropyThreshold: 4.5, RiskLowMax: 30, RiskMediumMax: 70,
	}

	e := New(Config{
		Disposable:         reg,
		DNS:                probes.NewDNSProbe(s, nil, 500*time.Millisecond, time.Hour),
		WHOIS:              probes.NewWHOISProbe(s, 500*time.Millisecond, time.Hour),
		IPIntel:            probes.NewIPIntelProbe(s, eg, nil, nil, 500*time.Millisecond, time.Hour),
		SMTP:               probes.NewSMTPProbe(s, eg, "", "", 500*time.Millisecond, time.Hour),
		Pattern:            probes.NewPatternProbe(s, 500, 0.85),
		Velocity:           probes.NewVelocityProbe(s, 10, 50, time.Hour, nil),
		Scorer:             scoring.NewScorer(weights),
		OverallBudget:      2 * time.Second,
		EntropyThreshold:   4.5,
		WHOISNewDomainDays: 30,
		SMTPEnabled:        false,
	})
	return e, s
}

func TestEngine_HardRejectShortCircuits(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Analyse(context.Background(), models.EmailInput{RawEmail: "not-an-email"}, models.ModeFast)
	require.Error(t, err)
	var hr *models.HardReject
	require.ErrorAs(t, err, &hr)
}

func TestEngine_DisposableDomainFires(t *testing.T) {
	e := newTestEngine(t)
	envelope, err := e.Analyse(context.Background(), models.EmailInput{RawEmail: "user@mailinator.com"}, models.ModeFast)
	require.NoError(t, err)
	require.NotNil(t, envelope.Signals.IsDisposable)
	assert.True(t, *envelope.Signals.IsDisposable)
	assert.GreaterOrEqual(t, envelope.RiskSummary.Score, 90)
	assert.Equal(t, models.ActionBlock, envelope.RiskSummary.Action)
}

func TestEngine_FastModeSkipsSlowProbes(t *testing.T) {
	e := newTestEngine(t)
	envelope, err := e.Analyse(context.Background(), models.EmailInput{RawEmail: "user@example.com"}, models.ModeFast)
	require.NoError(t, err)
	assert.Nil(t, envelope.Signals.DomainAgeDays)
	assert.Nil(t, envelope.Signals.SMTPDeliverable)
}

func TestEngine_NormalizedEmailPreserved(t *testing.T) {
	e := newTestEngine(t)
	envelope, err := e.Analyse(context.Background(), models.EmailInput{RawEmail: "User+promo@gmail.com"}, models.ModeFast)
	require.NoError(t, err)
	assert.Equal(t, "user@gmail.com", envelope.NormalizedEmail)
	require.NotNil(t, envelope.Signals.IsAlias)
	assert.True(t, *envelope.Signals.IsAlias)
}

// TestEngine_BlockedEmailsStillSeedRecentWindow guards against
// suppressing Remember on BLOCK: only the invalid-syntax hard reject
// skips seeding, so a disposable-domain BLOCK must still seed the
// window for later similarity/sequential checks on the same domain.
func TestEngine_BlockedEmailsStillSeedRecentWindow(t *testing.T) {
	e, s := newTestEngineWithStore(t)
	ctx := context.Background()

	envelope, err := e.Analyse(ctx, models.EmailInput{RawEmail: "user1@mailinator.com"}, models.ModeFast)
	require.NoError(t, err)
	require.Equal(t, models.ActionBlock, envelope.RiskSummary.Action)

	members, err := s.RecentMembers(ctx, "recent:mailinator.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"user1@mailinator.com"}, members)
}

// TestEngine_DomainAgeAtThresholdIsNew pins the new-domain boundary: a
// domain exactly at whoisNewDomainDays old is new, not merely a domain
// younger than the threshold. Pre-seeding the WHOIS cache key avoids a
// live network lookup.
func TestEngine_DomainAgeAtThresholdIsNew(t *testing.T) {
	e, s := newTestEngineWithStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "whois:example.com", []byte("30"), time.Hour))

	envelope, err := e.Analyse(ctx, models.EmailInput{RawEmail: "user@example.com"}, models.ModeFull)
	require.NoError(t, err)
	require.NotNil(t, envelope.Signals.IsNewDomain)
	assert.True(t, *envelope.Signals.IsNewDomain)
}

func TestEngine_DomainAgeAboveThresholdIsNotNew(t *testing.T) {
	e, s := newTestEngineWithStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "whois:example.com", []byte("31"), time.Hour))

	envelope, err := e.Analyse(ctx, models.EmailInput{RawEmail: "user@example.com"}, models.ModeFull)
	require.NoError(t, err)
	require.NotNil(t, envelope.Signals.IsNewDomain)
	assert.False(t, *envelope.Signals.IsNewDomain)
}

func TestEngine_HardRejectDoesNotSeedRecentWindow(t *testing.T) {
	e, s := newTestEngineWithStore(t)
	ctx := context.Background()

	_, err := e.Analyse(ctx, models.EmailInput{RawEmail: "not-an-email"}, models.ModeFast)
	require.Error(t, err)

	members, err := s.RecentMembers(ctx, "recent:")
	require.NoError(t, err)
	assert.Empty(t, members)
}
