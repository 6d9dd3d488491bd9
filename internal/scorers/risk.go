package scorers

import (
	"github.com/mbd888/sentinel/internal/features"
)

// Additive risk rule weights. The individual contributions are tuned so
// a worst-case transaction saturates the scale exactly.
const (
	riskLargeAmount    = 40.0 // amount > $1M
	riskElevatedAmount = 20.0 // amount > $100k
	riskFlashExecution = 30.0 // execution under 60s
	riskManyContracts  = 20.0 // more than 5 contract interactions
	riskQuietHours     = 10.0 // 02:00-06:00 window
)

// RiskScorer applies additive rule-based scoring over raw event fields.
type RiskScorer struct{}

func (s *RiskScorer) Name() string { return ScorerRisk }

func (s *RiskScorer) Score(e *features.TransactionEvent) ScoreResult {
	var score float64
	var reasons []string

	switch {
	case e.Amount > 1_000_000:
		score += riskLargeAmount
		reasons = append(reasons, "amount exceeds $1M")
	case e.Amount > 100_000:
		score += riskElevatedAmount
		reasons = append(reasons, "amount exceeds $100k")
	}

	if e.ExecutionTimeSeconds < 60 {
		score += riskFlashExecution
		reasons = append(reasons, "sub-minute execution (flash-loan pattern)")
	}

	if e.ContractInteractions > 5 {
		score += riskManyContracts
		reasons = append(reasons, "high contract interaction count")
	}

	if quietHours(e) {
		score += riskQuietHours
		reasons = append(reasons, "activity during quiet hours")
	}

	return ScoreResult{
		ScorerID:   ScorerRisk,
		Score:      clampScore(score),
		Reasoning:  joinReasons(reasons, "no risk rules triggered"),
		Confidence: 0.85,
	}
}
