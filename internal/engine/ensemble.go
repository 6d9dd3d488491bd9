package engine

import (
	"encoding/json"
	"math"

	"github.com/mbd888/sentinel/internal/patterns"
	"github.com/mbd888/sentinel/internal/scorers"
)

// Consensus action thresholds. Monitor is the default bucket.
const (
	blockOver  = 80
	alertOver  = 60
	allowBelow = 30
)

// consensusReasoning maps each action bucket to its fixed explanation.
var consensusReasoning = map[patterns.Action]string{
	patterns.ActionBlock:   "scorer consensus indicates critical threat",
	patterns.ActionAlert:   "scorer consensus indicates likely threat",
	patterns.ActionMonitor: "scorer consensus inconclusive, transaction under watch",
	patterns.ActionAllow:   "scorer consensus indicates benign transaction",
}

// Decision is the engine's consensus verdict for one event.
type Decision struct {
	ConsensusScore  int             `json:"consensusScore"`
	Action          patterns.Action `json:"action"`
	Reasoning       string          `json:"reasoning"`
	Confidence      float64         `json:"confidence"`
	ScorerBreakdown Breakdown       `json:"scorerBreakdown"`
	Fingerprint     string          `json:"fingerprint"`
	DecisionID      int64           `json:"decisionId"`
	TimestampMillis int64           `json:"timestampMillis"`
}

// Breakdown holds exactly the four scorer results that feed a
// consensus, never fewer and never more.
type Breakdown struct {
	Risk              scorers.ScoreResult `json:"risk"`
	PrivacyCompliance scorers.ScoreResult `json:"privacyCompliance"`
	TreasuryImpact    scorers.ScoreResult `json:"treasuryImpact"`
	Guardian          scorers.ScoreResult `json:"guardian"`
}

func (b Breakdown) results() []scorers.ScoreResult {
	return []scorers.ScoreResult{b.Risk, b.PrivacyCompliance, b.TreasuryImpact, b.Guardian}
}

// scores returns the per-scorer score map recorded with the decision.
func (b Breakdown) scores() map[string]float64 {
	out := make(map[string]float64, 4)
	for _, r := range b.results() {
		out[r.ScorerID] = r.Score
	}
	return out
}

func (b Breakdown) meanConfidence() float64 {
	var sum float64
	for _, r := range b.results() {
		sum += r.Confidence
	}
	return sum / 4
}

// Weights is the consensus weight vector. The canonical policy is the
// equal-weight mean; alternate vectors are a configuration variant, not
// a behavior change.
type Weights struct {
	Risk              float64
	PrivacyCompliance float64
	TreasuryImpact    float64
	Guardian          float64
}

// EqualWeights returns the canonical equal-weight vector.
func EqualWeights() Weights {
	return Weights{Risk: 1, PrivacyCompliance: 1, TreasuryImpact: 1, Guardian: 1}
}

func (w Weights) sum() float64 {
	return w.Risk + w.PrivacyCompliance + w.TreasuryImpact + w.Guardian
}

// Combine folds the four scorer results into one consensus score in
// [0, 100] using the weighted mean.
func Combine(b Breakdown, w Weights) int {
	total := w.sum()
	if total <= 0 {
		w = EqualWeights()
		total = w.sum()
	}

	weighted := b.Risk.Score*w.Risk +
		b.PrivacyCompliance.Score*w.PrivacyCompliance +
		b.TreasuryImpact.Score*w.TreasuryImpact +
		b.Guardian.Score*w.Guardian

	score := int(math.Round(weighted / total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// ActionFor maps a consensus score to its action bucket:
// >80 block, >60 alert, >=30 monitor, <30 allow.
func ActionFor(consensus int) patterns.Action {
	switch {
	case consensus > blockOver:
		return patterns.ActionBlock
	case consensus > alertOver:
		return patterns.ActionAlert
	case consensus >= allowBelow:
		return patterns.ActionMonitor
	default:
		return patterns.ActionAllow
	}
}

// AccuracyMetrics are per-scorer lifetime feedback counters. They only
// ever increase during normal operation.
type AccuracyMetrics struct {
	Correct int64 `json:"correct"`
	Total   int64 `json:"total"`
}

// MarshalJSON includes the derived accuracy percentage in reports.
func (a AccuracyMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Correct         int64   `json:"correct"`
		Total           int64   `json:"total"`
		AccuracyPercent float64 `json:"accuracyPercent"`
	}{a.Correct, a.Total, a.AccuracyPercent()})
}

// AccuracyPercent returns correct/total as a percentage, 0 when no
// outcomes have been recorded.
func (a AccuracyMetrics) AccuracyPercent() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Correct) / float64(a.Total) * 100
}
