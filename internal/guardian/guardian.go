// Package guardian implements the adaptive fourth scorer.
//
// The guardian computes a weighted base threat probability from the
// normalized feature vector, then adjusts it using its personality
// profile and a similarity lookup against pattern memory: recognized
// benign patterns dampen the probability, quiet-hours and large amounts
// raise it. The profile is immutable during scoring; pattern memory is
// an injected dependency, never mutated here.
package guardian

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/patterns"
	"github.com/mbd888/sentinel/internal/scorers"
)

// Feature weights for the base probability. Fixed, sum to 1.
const (
	weightAmount    = 0.4
	weightSpeed     = 0.3
	weightContracts = 0.2
	weightTime      = 0.1
)

// Adjustment parameters.
const (
	largeAmountCutoff    = 500_000.0
	quietHoursAdjustment = 0.15
	dampening            = 0.05
	dampenSimilarity     = 0.8 // similarity above this marks a recognized pattern
	dampenMinEntries     = 10  // memory must hold at least this many entries
)

// Probability thresholds mapping to actions.
const (
	blockThreshold   = 0.8
	alertThreshold   = 0.6
	monitorThreshold = 0.3
)

// Fixed reasoning strings per action bucket.
var actionReasoning = map[patterns.Action]string{
	patterns.ActionBlock:   "threat probability critical, blocking transaction",
	patterns.ActionAlert:   "elevated threat probability, alerting operators",
	patterns.ActionMonitor: "moderate threat probability, monitoring",
	patterns.ActionAllow:   "threat probability within tolerance",
}

// Profile is the guardian's tunable personality. Read-only during
// scoring; replaced wholesale via an explicit tuning operation.
type Profile struct {
	RiskTolerance       float64 `json:"riskTolerance"`
	LearningRate        float64 `json:"learningRate"`
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
}

// DefaultProfile returns the stock personality.
func DefaultProfile() Profile {
	return Profile{
		RiskTolerance:       0.5,
		LearningRate:        0.1,
		ConfidenceThreshold: 0.7,
	}
}

// MemoryReader is the similarity lookup the guardian needs from pattern
// memory.
type MemoryReader interface {
	MaxSimilarity(e *features.TransactionEvent) (best float64, entries int)
}

// Assessment is the guardian's full verdict for one event.
type Assessment struct {
	Result          scorers.ScoreResult
	BaseProbability float64
	Probability     float64
	Action          patterns.Action
	Dampened        bool
}

// Guardian is the adaptive scorer. Safe for concurrent use.
type Guardian struct {
	profile Profile
	memory  MemoryReader

	decisions atomic.Int64
}

// New creates a guardian with the given profile and memory.
func New(profile Profile, memory MemoryReader) *Guardian {
	return &Guardian{profile: profile, memory: memory}
}

// Profile returns the current personality profile.
func (g *Guardian) Profile() Profile { return g.profile }

// Decisions returns the number of assessments made by this instance.
func (g *Guardian) Decisions() int64 { return g.decisions.Load() }

// Evaluate assesses one event against its feature vector.
func (g *Guardian) Evaluate(e *features.TransactionEvent, vec features.Vector) Assessment {
	g.decisions.Add(1)

	base := weightAmount*vec.Amount +
		weightSpeed*vec.Speed +
		weightContracts*vec.Contracts +
		weightTime*vec.Time

	adjustment := 0.0
	dampened := false

	if e.Amount > largeAmountCutoff {
		adjustment += 0.1 * g.profile.RiskTolerance
	}
	if h := e.Hour(); h >= 2 && h <= 6 {
		adjustment += quietHoursAdjustment
	}
	if g.memory != nil {
		if best, entries := g.memory.MaxSimilarity(e); best > dampenSimilarity && entries >= dampenMinEntries {
			adjustment -= dampening
			dampened = true
		}
	}

	probability := math.Min(1, base+adjustment)
	if probability < 0 {
		probability = 0
	}

	action := actionFor(probability)

	reasoning := actionReasoning[action]
	if dampened {
		reasoning += " (dampened by recognized benign pattern)"
	}

	return Assessment{
		Result: scorers.ScoreResult{
			ScorerID:   scorers.ScorerGuardian,
			Score:      math.Round(probability * 100),
			Reasoning:  reasoning,
			Confidence: confidence(probability),
		},
		BaseProbability: base,
		Probability:     probability,
		Action:          action,
		Dampened:        dampened,
	}
}

// Score implements scorers.Scorer so the guardian slots into the
// ensemble alongside the stateless signal scorers.
func (g *Guardian) Score(e *features.TransactionEvent) scorers.ScoreResult {
	vec, err := features.Normalize(e)
	if err != nil {
		r := scorers.Neutral(scorers.ScorerGuardian)
		r.Reasoning = fmt.Sprintf("normalization failed: %v", err)
		return r
	}
	return g.Evaluate(e, vec).Result
}

// Name implements scorers.Scorer.
func (g *Guardian) Name() string { return scorers.ScorerGuardian }

func actionFor(probability float64) patterns.Action {
	switch {
	case probability > blockThreshold:
		return patterns.ActionBlock
	case probability > alertThreshold:
		return patterns.ActionAlert
	case probability > monitorThreshold:
		return patterns.ActionMonitor
	default:
		return patterns.ActionAllow
	}
}

// confidence grows with distance from the neutral midpoint: a verdict
// near 0 or 1 is more certain than one near 0.5.
func confidence(probability float64) float64 {
	return 0.5 + math.Abs(probability-0.5)
}
