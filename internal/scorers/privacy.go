package scorers

import (
	"github.com/mbd888/sentinel/internal/features"
)

// Compliance rule weights. Higher score = higher compliance risk.
const (
	privacyPersonalData = 30.0
	privacyEUData       = 20.0
	privacyNoConsent    = 25.0
)

// PrivacyComplianceScorer flags regulatory exposure: personal data
// handling, EU jurisdiction, and missing consent.
type PrivacyComplianceScorer struct{}

func (s *PrivacyComplianceScorer) Name() string { return ScorerPrivacy }

func (s *PrivacyComplianceScorer) Score(e *features.TransactionEvent) ScoreResult {
	var score float64
	var reasons []string

	if e.HasPersonalData {
		score += privacyPersonalData
		reasons = append(reasons, "transaction carries personal data")
	}
	if e.Jurisdiction == "EU" {
		score += privacyEUData
		reasons = append(reasons, "EU jurisdiction")
	}
	if !e.ConsentGiven {
		score += privacyNoConsent
		reasons = append(reasons, "no consent on record")
	}

	return ScoreResult{
		ScorerID:   ScorerPrivacy,
		Score:      clampScore(score),
		Reasoning:  joinReasons(reasons, "no compliance flags"),
		Confidence: 0.8,
	}
}
