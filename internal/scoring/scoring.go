// Package scoring implements the additive weighted scorer and
// level/action mapping: a flat list of weighted signal checks
// accumulated into a breakdown map, then clamped and banded. The
// per-check bonus/penalty shape follows a prior deliverability scorer;
// the actual weights and fire conditions are the fraud-risk table
// instead of deliverability proof signals.
package scoring

import (
	"signalguard/internal/config"
	"signalguard/internal/models"
)

// Weights is read once at construction ("Thresholds and
// weights are read once at engine construction").
type Weights struct {
	DisposableDomain    int
	NoMX                int
	SMTPUndeliverable   int
	NewDomain           int
	VPNOrProxy          int
	PatternSequential   int
	VelocityBreach      int
	PatternSimilar      int
	HighEntropy         int
	DatacenterIP        int
	PatternNumberSuffix int
	SMTPCatchAll        int

	EntropyThreshold float64
	RiskLowMax       int
	RiskMediumMax    int
}

func WeightsFromSettings(s *config.Settings) Weights {
	return Weights{
		DisposableDomain:    s.WeightDisposableDomain,
		NoMX:                s.WeightNoMX,
		SMTPUndeliverable:   s.WeightSMTPUndeliverable,
		NewDomain:           s.WeightNewDomain,
		VPNOrProxy:          s.WeightVPNOrProxy,
		PatternSequential:   s.WeightPatternSequential,
		VelocityBreach:      s.WeightVelocityBreach,
		PatternSimilar:      s.WeightPatternSimilar,
		HighEntropy:         s.WeightHighEntropy,
		DatacenterIP:        s.WeightDatacenterIP,
		PatternNumberSuffix: s.WeightPatternNumberSuffix,
		SMTPCatchAll:        s.WeightSMTPCatchAll,
		EntropyThreshold:    s.EntropyThreshold,
		RiskLowMax:          s.RiskLowMax,
		RiskMediumMax:       s.RiskMediumMax,
	}
}

// Scorer evaluates a Signals record into a RiskSummary plus the ordered
// reasons[] list.
type Scorer struct {
	weights Weights
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score is a pure function of sig: the same Signals value always yields
// the same reasons, score, level and action, independent of probe
// completion order.
func (s *Scorer) Score(sig models.Signals) (models.RiskSummary, []models.ReasonContribution) {
	fired := map[string]models.ReasonContribution{}

	if boolVal(sig.IsDisposable) {
		fired[models.ReasonDisposableDomain] = models.ReasonContribution{
			Code: models.ReasonDisposableDomain, Points: s.weights.DisposableDomain,
			Message: "domain is a known disposable provider",
		}
	}
	if sig.MXFound != nil && !*sig.MXFound {
		fired[models.ReasonNoMX] = models.ReasonContribution{
			Code: models.ReasonNoMX, Points: s.weights.NoMX,
			Message: "domain has no MX record",
		}
	}
	if sig.SMTPDeliverable != nil && !*sig.SMTPDeliverable {
		fired[models.ReasonSMTPUndeliverable] = models.ReasonContribution{
			Code: models.ReasonSMTPUndeliverable, Points: s.weights.SMTPUndeliverable,
			Message: "mailbox rejected during SMTP probe",
		}
	}
	if boolVal(sig.IsNewDomain) {
		fired[models.ReasonNewDomain] = models.ReasonContribution{
			Code: models.ReasonNewDomain, Points: s.weights.NewDomain,
			Message:   "domain was registered recently",
			Meta:      metaIfInt("domain_age_days", sig.DomainAgeDays),
		}
	}

	isVPNOrProxy := boolVal(sig.IsVPN) || boolVal(sig.IsProxy)
	if isVPNOrProxy {
		fired[models.ReasonVPNOrProxy] = models.ReasonContribution{
			Code: models.ReasonVPNOrProxy, Points: s.weights.VPNOrProxy,
			Message: "request IP resolves to a VPN or proxy",
		}
	}
	// DATACENTER_IP is mutually exclusive with VPN_OR_PROXY: §9 Open
	// Questions resolves the ambiguity by only firing the weaker signal
	// when the stronger one did not already fire.
	if boolVal(sig.IsDatacenter) && !isVPNOrProxy {
		fired[models.ReasonDatacenterIP] = models.ReasonContribution{
			Code: models.ReasonDatacenterIP, Points: s.weights.DatacenterIP,
			Message: "request IP resolves to a datacenter",
		}
	}

	if boolVal(sig.IsSequential) {
		fired[models.ReasonPatternSequential] = models.ReasonContribution{
			Code: models.ReasonPatternSequential, Points: s.weights.PatternSequential,
			Message: "local-part follows a sequential registration pattern",
		}
	}
	if boolVal(sig.VelocityBreach) {
		fired[models.ReasonVelocityBreach] = models.ReasonContribution{
			Code: models.ReasonVelocityBreach, Points: s.weights.VelocityBreach,
			Message: "signup velocity exceeds the configured threshold",
		}
	}
	if boolVal(sig.IsSimilarToRecent) {
		fired[models.ReasonPatternSimilar] = models.ReasonContribution{
			Code: models.ReasonPatternSimilar, Points: s.weights.PatternSimilar,
			Message: "email is near-identical to a recently seen address on this domain",
			Meta:    metaIfFloat("similarity_score", sig.SimilarityScore),
		}
	}
	if sig.EntropyScore != nil && *sig.EntropyScore > s.weights.EntropyThreshold {
		fired[models.ReasonHighEntropy] = models.ReasonContribution{
			Code: models.ReasonHighEntropy, Points: s.weights.HighEntropy,
			Message: "local-part has unusually high character entropy",
			Meta:    metaIfFloat("entropy_score", sig.EntropyScore),
		}
	}
	// PATTERN_NUMBER_SUFFIX only fires when the stronger SEQUENTIAL signal
	// did not already cover the same local-part.
	if boolVal(sig.HasNumberSuffix) && !boolVal(sig.IsSequential) {
		fired[models.ReasonPatternNumberSuffix] = models.ReasonContribution{
			Code: models.ReasonPatternNumberSuffix, Points: s.weights.PatternNumberSuffix,
			Message: "local-part ends in a numeric suffix",
		}
	}
	if boolVal(sig.CatchAllDomain) {
		fired[models.ReasonSMTPCatchAll] = models.ReasonContribution{
			Code: models.ReasonSMTPCatchAll, Points: s.weights.SMTPCatchAll,
			Message: "domain accepts mail for any mailbox (catch-all)",
		}
	}

	total := 0
	reasons := make([]models.ReasonContribution, 0, len(fired))
	for _, code := range models.ReasonOrder {
		if rc, ok := fired[code]; ok {
			total += rc.Points
			reasons = append(reasons, rc)
		}
	}
	if total > 100 {
		total = 100
	}

	level, action := s.band(total)
	return models.RiskSummary{Score: total, Level: level, Action: action}, reasons
}

func (s *Scorer) band(score int) (string, string) {
	switch {
	case score <= s.weights.RiskLowMax:
		return models.LevelLow, models.ActionAllow
	case score <= s.weights.RiskMediumMax:
		return models.LevelMedium, models.ActionChallenge
	default:
		return models.LevelHigh, models.ActionBlock
	}
}

func boolVal(b *bool) bool {
	return b != nil && *b
}

func metaIfInt(key string, v *int) map[string]any {
	if v == nil {
		return nil
	}
	return map[string]any{key: *v}
}

func metaIfFloat(key string, v *float64) map[string]any {
	if v == nil {
		return nil
	}
	return map[string]any{key: *v}
}
