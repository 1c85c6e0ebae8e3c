package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signalguard/internal/models"
)

func defaultWeights() Weights {
	return Weights{
		DisposableDomain:    90,
		NoMX:                100,
		SMTPUndeliverable:   70,
		NewDomain:           60,
		VPNOrProxy:          50,
		PatternSequential:   40,
		VelocityBreach:      40,
		PatternSimilar:      35,
		HighEntropy:         30,
		DatacenterIP:        30,
		PatternNumberSuffix: 25,
		SMTPCatchAll:        20,
		EntropyThreshold:    4.5,
		RiskLowMax:          30,
		RiskMediumMax:       70,
	}
}

func TestScorer_Score(t *testing.T) {
	tests := []struct {
		name          string
		signals       models.Signals
		expectedScore int
		expectedLevel string
		expectedAction string
	}{
		{
			name:          "clean signup",
			signals:       models.Signals{MXFound: models.BoolPtr(true)},
			expectedScore: 0,
			expectedLevel: models.LevelLow,
			expectedAction: models.ActionAllow,
		},
		{
			name: "disposable domain dominates",
			signals: models.Signals{
				IsDisposable: models.BoolPtr(true),
				MXFound:      models.BoolPtr(true),
			},
			expectedScore:  90,
			expectedLevel:  models.LevelHigh,
			expectedAction: models.ActionBlock,
		},
		{
			name: "no mx alone is high",
			signals: models.Signals{
				MXFound: models.BoolPtr(false),
			},
			expectedScore:  100,
			expectedLevel:  models.LevelHigh,
			expectedAction: models.ActionBlock,
		},
		{
			name: "vpn and datacenter only score vpn weight",
			signals: models.Signals{
				MXFound:      models.BoolPtr(true),
				IsVPN:        models.BoolPtr(true),
				IsDatacenter: models.BoolPtr(true),
			},
			expectedScore:  50,
			expectedLevel:  models.LevelMedium,
			expectedAction: models.ActionChallenge,
		},
		{
			name: "datacenter alone scores datacenter weight",
			signals: models.Signals{
				MXFound:      models.BoolPtr(true),
				IsDatacenter: models.BoolPtr(true),
			},
			expectedScore:  30,
			expectedLevel:  models.LevelLow,
			expectedAction: models.ActionAllow,
		},
		{
			name: "sequential suppresses number suffix weight",
			signals: models.Signals{
				MXFound:         models.BoolPtr(true),
				IsSequential:    models.BoolPtr(true),
				HasNumberSuffix: models.BoolPtr(true),
			},
			expectedScore:  40,
			expectedLevel:  models.LevelMedium,
			expectedAction: models.ActionChallenge,
		},
		{
			name: "score clamps at 100",
			signals: models.Signals{
				IsDisposable:    models.BoolPtr(true),
				MXFound:         models.BoolPtr(false),
				IsNewDomain:     models.BoolPtr(true),
				IsVPN:           models.BoolPtr(true),
				IsSequential:    models.BoolPtr(true),
				VelocityBreach:  models.BoolPtr(true),
			},
			expectedScore:  100,
			expectedLevel:  models.LevelHigh,
			expectedAction: models.ActionBlock,
		},
	}

	scorer := NewScorer(defaultWeights())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, _ := scorer.Score(tt.signals)
			assert.Equal(t, tt.expectedScore, summary.Score)
			assert.Equal(t, tt.expectedLevel, summary.Level)
			assert.Equal(t, tt.expectedAction, summary.Action)
		})
	}
}

func TestScorer_ReasonsOrderIsFixed(t *testing.T) {
	scorer := NewScorer(defaultWeights())
	signals := models.Signals{
		MXFound:         models.BoolPtr(false),
		IsDisposable:    models.BoolPtr(true),
		HasNumberSuffix: models.BoolPtr(true),
	}
	_, reasons := scorer.Score(signals)
	assert.Equal(t, models.ReasonDisposableDomain, reasons[0].Code)
	assert.Equal(t, models.ReasonNoMX, reasons[1].Code)
	assert.Equal(t, models.ReasonPatternNumberSuffix, reasons[2].Code)
}

func TestScorer_PartialFailurePreservation(t *testing.T) {
	scorer := NewScorer(defaultWeights())
	full := models.Signals{
		MXFound:      models.BoolPtr(false),
		IsDisposable: models.BoolPtr(true),
	}
	partial := models.Signals{
		MXFound: models.BoolPtr(false),
		// IsDisposable probe failed -> nil, not false.
	}
	fullSummary, _ := scorer.Score(full)
	partialSummary, _ := scorer.Score(partial)
	assert.Equal(t, 100, fullSummary.Score) // disposable(90)+no_mx(100) clamps at 100
	assert.Equal(t, 100, partialSummary.Score) // no_mx(100) alone; the nil disposable signal adds 0
}
