// Package config centralizes the environment-driven configuration
// surface. It follows an established pattern of "read an env var, fall
// back to a sane default" but binds everything through viper instead of
// scattering os.Getenv calls across main(), so cmd/api and cmd/worker
// share one typed Settings struct.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"signalguard/internal/models"
)

// Settings is the complete, typed configuration surface. Every field maps
// 1:1 to an entry in "Configuration surface" list.
type Settings struct {
	Environment string // dev | staging | prod

	StoreAddr     string
	StorePassword string
	StoreDB       int

	DisposableSeedPath string
	DisposableRemoteURL string
	DisposableRefreshTimeout time.Duration

	EntropyThreshold float64

	WeightDisposableDomain    int
	WeightNoMX                int
	WeightSMTPUndeliverable   int
	WeightNewDomain           int
	WeightVPNOrProxy          int
	WeightPatternSequential   int
	WeightVelocityBreach      int
	WeightPatternSimilar      int
	WeightHighEntropy         int
	WeightDatacenterIP        int
	WeightPatternNumberSuffix int
	WeightSMTPCatchAll        int

	RiskLowMax    int
	RiskMediumMax int

	IPIntelProviders   []string
	IPIntelAPIKeys     map[string]string
	IPIntelTimeout     time.Duration
	IPIntelCacheTTL    time.Duration

	WHOISNewDomainThresholdDays int
	WHOISCacheTTL               time.Duration
	WHOISTimeout                time.Duration

	VelocityIPLimitPerHour     int
	VelocityDomainLimitPerHour int
	VelocityBucketWidth        time.Duration
	VelocityDomainAllowlist    []string

	SMTPEnabled bool
	SMTPSender  string
	SMTPTimeout time.Duration

	AdminAPIKey string

	BackgroundEnrichmentEnabled bool
	EnrichmentResultTTL         time.Duration

	WebhookURLs   []string
	WebhookTLSVerify bool

	EngineOverallBudget time.Duration

	RecentEmailWindowSize int
}

// Load reads configuration from SIGNALGUARD_-prefixed environment
// variables (and an optional signalguard.yaml in the working directory)
// and validates it.
// ConfigError is returned for failures that must fail-closed outside dev.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("SIGNALGUARD")
	v.AutomaticEnv()
	v.SetConfigName("signalguard")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // absence of a config file is not an error

	setDefaults(v)

	s := &Settings{
		Environment: strings.ToLower(v.GetString("environment")),

		StoreAddr:     v.GetString("store_addr"),
		StorePassword: v.GetString("store_password"),
		StoreDB:       v.GetInt("store_db"),

		DisposableSeedPath:       v.GetString("disposable_seed_path"),
		DisposableRemoteURL:      v.GetString("disposable_remote_url"),
		DisposableRefreshTimeout: v.GetDuration("disposable_refresh_timeout"),

		EntropyThreshold: v.GetFloat64("entropy_threshold"),

		WeightDisposableDomain:    v.GetInt("weight_disposable_domain"),
		WeightNoMX:                v.GetInt("weight_no_mx"),
		WeightSMTPUndeliverable:   v.GetInt("weight_smtp_undeliverable"),
		WeightNewDomain:           v.GetInt("weight_new_domain"),
		WeightVPNOrProxy:          v.GetInt("weight_vpn_or_proxy"),
		WeightPatternSequential:   v.GetInt("weight_pattern_sequential"),
		WeightVelocityBreach:      v.GetInt("weight_velocity_breach"),
		WeightPatternSimilar:      v.GetInt("weight_pattern_similar"),
		WeightHighEntropy:         v.GetInt("weight_high_entropy"),
		WeightDatacenterIP:        v.GetInt("weight_datacenter_ip"),
		WeightPatternNumberSuffix: v.GetInt("weight_pattern_number_suffix"),
		WeightSMTPCatchAll:        v.GetInt("weight_smtp_catch_all"),

		RiskLowMax:    v.GetInt("risk_low_max"),
		RiskMediumMax: v.GetInt("risk_medium_max"),

		IPIntelProviders: splitNonEmpty(v.GetString("ip_intel_providers")),
		IPIntelAPIKeys:   parseKV(v.GetString("ip_intel_api_keys")),
		IPIntelTimeout:   v.GetDuration("ip_intel_timeout"),
		IPIntelCacheTTL:  v.GetDuration("ip_intel_cache_ttl"),

		WHOISNewDomainThresholdDays: v.GetInt("whois_new_domain_threshold_days"),
		WHOISCacheTTL:               v.GetDuration("whois_cache_ttl"),
		WHOISTimeout:                v.GetDuration("whois_timeout"),

		VelocityIPLimitPerHour:     v.GetInt("velocity_ip_limit_per_hour"),
		VelocityDomainLimitPerHour: v.GetInt("velocity_domain_limit_per_hour"),
		VelocityBucketWidth:        v.GetDuration("velocity_bucket_width"),
		VelocityDomainAllowlist:    splitNonEmpty(v.GetString("velocity_domain_allowlist")),

		SMTPEnabled: v.GetBool("smtp_enabled"),
		SMTPSender:  v.GetString("smtp_sender"),
		SMTPTimeout: v.GetDuration("smtp_timeout"),

		AdminAPIKey: v.GetString("admin_api_key"),

		BackgroundEnrichmentEnabled: v.GetBool("background_enrichment_enabled"),
		EnrichmentResultTTL:         v.GetDuration("enrichment_result_ttl"),

		WebhookURLs:      splitNonEmpty(v.GetString("webhook_urls")),
		WebhookTLSVerify: v.GetBool("webhook_tls_verify"),

		EngineOverallBudget: v.GetDuration("engine_overall_budget"),

		RecentEmailWindowSize: v.GetInt("recent_email_window_size"),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	nonDev := s.Environment != "dev"

	if nonDev && strings.TrimSpace(s.AdminAPIKey) == "" {
		return &models.ConfigError{Field: "admin_api_key", Detail: "must be set outside dev environment"}
	}

	weights := map[string]int{
		"weight_disposable_domain":    s.WeightDisposableDomain,
		"weight_no_mx":                s.WeightNoMX,
		"weight_smtp_undeliverable":   s.WeightSMTPUndeliverable,
		"weight_new_domain":           s.WeightNewDomain,
		"weight_vpn_or_proxy":         s.WeightVPNOrProxy,
		"weight_pattern_sequential":   s.WeightPatternSequential,
		"weight_velocity_breach":      s.WeightVelocityBreach,
		"weight_pattern_similar":      s.WeightPatternSimilar,
		"weight_high_entropy":         s.WeightHighEntropy,
		"weight_datacenter_ip":        s.WeightDatacenterIP,
		"weight_pattern_number_suffix": s.WeightPatternNumberSuffix,
		"weight_smtp_catch_all":       s.WeightSMTPCatchAll,
	}
	for name, w := range weights {
		if w < 0 {
			if nonDev {
				return &models.ConfigError{Field: name, Detail: "must be non-negative"}
			}
		}
	}
	if s.RiskLowMax >= s.RiskMediumMax {
		return &models.ConfigError{Field: "risk_low_max/risk_medium_max", Detail: "low threshold must be below medium threshold"}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("store_addr", "127.0.0.1:6379")
	v.SetDefault("store_password", "")
	v.SetDefault("store_db", 0)

	v.SetDefault("disposable_seed_path", "internal/disposable/seed.json")
	v.SetDefault("disposable_remote_url", "")
	v.SetDefault("disposable_refresh_timeout", 5*time.Second)

	v.SetDefault("entropy_threshold", 4.5)

	v.SetDefault("weight_disposable_domain", 90)
	v.SetDefault("weight_no_mx", 100)
	v.SetDefault("weight_smtp_undeliverable", 70)
	v.SetDefault("weight_new_domain", 60)
	v.SetDefault("weight_vpn_or_proxy", 50)
	v.SetDefault("weight_pattern_sequential", 40)
	v.SetDefault("weight_velocity_breach", 40)
	v.SetDefault("weight_pattern_similar", 35)
	v.SetDefault("weight_high_entropy", 30)
	v.SetDefault("weight_datacenter_ip", 30)
	v.SetDefault("weight_pattern_number_suffix", 25)
	v.SetDefault("weight_smtp_catch_all", 20)

	v.SetDefault("risk_low_max", 30)
	v.SetDefault("risk_medium_max", 70)

	v.SetDefault("ip_intel_providers", "ipwhois,ipapi")
	v.SetDefault("ip_intel_api_keys", "")
	v.SetDefault("ip_intel_timeout", 2*time.Second)
	v.SetDefault("ip_intel_cache_ttl", time.Hour)

	v.SetDefault("whois_new_domain_threshold_days", 30)
	v.SetDefault("whois_cache_ttl", 24*time.Hour)
	v.SetDefault("whois_timeout", 5*time.Second)

	v.SetDefault("velocity_ip_limit_per_hour", 10)
	v.SetDefault("velocity_domain_limit_per_hour", 50)
	v.SetDefault("velocity_bucket_width", time.Hour)
	v.SetDefault("velocity_domain_allowlist", "gmail.com,yahoo.com,outlook.com,hotmail.com,icloud.com")

	v.SetDefault("smtp_enabled", false)
	v.SetDefault("smtp_sender", "")
	v.SetDefault("smtp_timeout", 10*time.Second)

	v.SetDefault("admin_api_key", "")

	v.SetDefault("background_enrichment_enabled", false)
	v.SetDefault("enrichment_result_ttl", 24*time.Hour)

	v.SetDefault("webhook_urls", "")
	v.SetDefault("webhook_tls_verify", true)

	v.SetDefault("engine_overall_budget", 8*time.Second)

	v.SetDefault("recent_email_window_size", 500)
}

func splitNonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseKV parses "provider1=key1,provider2=key2" into a map.
func parseKV(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range splitNonEmpty(s) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// String implements a redacted representation useful for startup logs.
func (s *Settings) String() string {
	return fmt.Sprintf("Settings{env=%s store=%s smtp_enabled=%v enrichment=%v}",
		s.Environment, s.StoreAddr, s.SMTPEnabled, s.BackgroundEnrichmentEnabled)
}
