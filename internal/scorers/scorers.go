// Package scorers implements the independent threat-scoring signals.
//
// Each scorer is a pure function over a single transaction event and
// returns a score in [0, 100] with a reasoning tag. Scorers never see
// each other's output; the engine runs them concurrently and combines
// their results into one consensus decision.
package scorers

import (
	"strings"

	"github.com/mbd888/sentinel/internal/features"
)

// Scorer IDs used in decision breakdowns and accuracy tracking.
const (
	ScorerRisk     = "risk"
	ScorerPrivacy  = "privacy_compliance"
	ScorerTreasury = "treasury_impact"
	ScorerGuardian = "guardian"
)

// NeutralScore is substituted when a scorer fails or times out so the
// ensemble always completes with exactly four inputs.
const NeutralScore = 50.0

// ScoreResult is the output of one scorer for one event.
type ScoreResult struct {
	ScorerID   string  `json:"scorerId"`
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
	Degraded   bool    `json:"degraded,omitempty"`
}

// Scorer evaluates a single transaction event.
// Implementations must be stateless and safe for concurrent use.
type Scorer interface {
	Name() string
	Score(event *features.TransactionEvent) ScoreResult
}

// Neutral returns the degraded fallback result for a failed scorer.
func Neutral(scorerID string) ScoreResult {
	return ScoreResult{
		ScorerID:   scorerID,
		Score:      NeutralScore,
		Reasoning:  "scorer unavailable, neutral default applied",
		Confidence: 0,
		Degraded:   true,
	}
}

// Signal returns the three stateless signal scorers in breakdown order.
func Signal() []Scorer {
	return []Scorer{
		&RiskScorer{},
		&PrivacyComplianceScorer{},
		&TreasuryImpactScorer{},
	}
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// quietHours reports whether the event hour falls in the 02:00-06:00
// window where legitimate activity is rare.
func quietHours(e *features.TransactionEvent) bool {
	h := e.Hour()
	return h >= 2 && h <= 6
}

func joinReasons(reasons []string, fallback string) string {
	if len(reasons) == 0 {
		return fallback
	}
	return strings.Join(reasons, "; ")
}
