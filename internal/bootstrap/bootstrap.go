// Package bootstrap wires Settings into a ready-to-use Engine, Queue and
// Store, shared by cmd/api and cmd/worker so neither binary duplicates
// the construction order.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"signalguard/internal/config"
	"signalguard/internal/disposable"
	"signalguard/internal/egress"
	"signalguard/internal/engine"
	"signalguard/internal/enrichment"
	"signalguard/internal/probes"
	"signalguard/internal/scoring"
	"signalguard/internal/store"
)

// App bundles every long-lived dependency cmd/api and cmd/worker share.
type App struct {
	Settings *config.Settings
	Logger   *zap.Logger
	Store    store.Store
	Engine   *engine.Engine
	Queue    *enrichment.Queue
}

// Build constructs the full dependency graph from settings. It is the
// single place that decides construction order: store, then disposable
// registry, then probes, then scorer, then engine.
func Build(ctx context.Context, settings *config.Settings, logger *zap.Logger) (*App, error) {
	redisStore, err := store.NewRedisStore(ctx, settings.StoreAddr, settings.StorePassword, settings.StoreDB)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}

	reg, remoteAdded, err := disposable.Load(ctx, settings.DisposableRemoteURL, settings.DisposableRefreshTimeout)
	if err != nil {
		return nil, fmt.Errorf("load disposable registry: %w", err)
	}
	logger.Info("disposable domain registry loaded",
		zap.Int("total", reg.Size()),
		zap.Int("remote_added", remoteAdded),
	)

	eg := egress.NewManager(nil)

	dnsProbe := probes.NewDNSProbe(redisStore, nil, settings.IPIntelTimeout, settings.IPIntelCacheTTL)
	whoisProbe := probes.NewWHOISProbe(redisStore, settings.WHOISTimeout, settings.WHOISCacheTTL)
	ipIntelProbe := probes.NewIPIntelProbe(redisStore, eg, settings.IPIntelProviders, settings.IPIntelAPIKeys, settings.IPIntelTimeout, settings.IPIntelCacheTTL)
	smtpProbe := probes.NewSMTPProbe(redisStore, eg, settings.SMTPSender, "", settings.SMTPTimeout, settings.WHOISCacheTTL)
	patternProbe := probes.NewPatternProbe(redisStore, settings.RecentEmailWindowSize, 0.85)
	velocityProbe := probes.NewVelocityProbe(redisStore, settings.VelocityIPLimitPerHour, settings.VelocityDomainLimitPerHour, settings.VelocityBucketWidth, settings.VelocityDomainAllowlist)

	scorer := scoring.NewScorer(scoring.WeightsFromSettings(settings))

	eng := engine.New(engine.Config{
		Disposable:                  reg,
		DNS:                         dnsProbe,
		WHOIS:                       whoisProbe,
		IPIntel:                     ipIntelProbe,
		SMTP:                        smtpProbe,
		Pattern:                     patternProbe,
		Velocity:                    velocityProbe,
		Scorer:                      scorer,
		OverallBudget:               settings.EngineOverallBudget,
		EntropyThreshold:            settings.EntropyThreshold,
		WHOISNewDomainDays:          settings.WHOISNewDomainThresholdDays,
		SMTPEnabled:                 settings.SMTPEnabled,
		BackgroundEnrichmentEnabled: settings.BackgroundEnrichmentEnabled,
	})

	queue := enrichment.NewQueue(redisStore, settings.EnrichmentResultTTL)

	return &App{
		Settings: settings,
		Logger:   logger,
		Store:    redisStore,
		Engine:   eng,
		Queue:    queue,
	}, nil
}
