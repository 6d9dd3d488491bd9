package scorers

import (
	"fmt"
	"math"

	"github.com/mbd888/sentinel/internal/features"
)

// TreasuryImpactScorer scores a transaction by the fraction of the
// treasury it would move: min(100, amount/treasurySize * 100).
type TreasuryImpactScorer struct{}

func (s *TreasuryImpactScorer) Name() string { return ScorerTreasury }

func (s *TreasuryImpactScorer) Score(e *features.TransactionEvent) ScoreResult {
	treasury := e.TreasurySize
	if treasury <= 0 {
		treasury = features.DefaultTreasurySize
	}

	pct := math.Min(100, e.Amount/treasury*100)

	return ScoreResult{
		ScorerID:   ScorerTreasury,
		Score:      clampScore(pct),
		Reasoning:  fmt.Sprintf("transaction moves %.1f%% of treasury", pct),
		Confidence: 0.9,
	}
}
