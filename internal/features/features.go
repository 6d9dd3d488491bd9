// Package features normalizes raw transaction events into bounded
// feature vectors.
//
// Every downstream scorer consumes either the raw event or the vector
// produced here. Normalization is a pure function: identical events
// always produce identical vectors, and every feature lands in [0, 1].
package features

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrValidation marks a malformed transaction event. Rejected at the
// boundary, before any scorer runs.
var ErrValidation = errors.New("features: invalid transaction event")

// Defaults applied when optional event fields are absent.
const (
	DefaultSenderScore  = 50.0
	DefaultTreasurySize = 1_000_000.0
)

// Normalization scale constants.
const (
	amountScale     = 1_000_000.0 // amounts at or above $1M normalize to 1.0
	contractsScale  = 10.0        // 10+ contract interactions normalize to 1.0
	flashWindowSecs = 60.0        // sub-minute execution is the flash-loan signature
)

// TransactionEvent is a caller-supplied transaction description.
// Immutable once received; optional fields carry documented defaults
// applied at the transport boundary.
type TransactionEvent struct {
	Amount               float64 `json:"amount"`
	ExecutionTimeSeconds float64 `json:"executionTimeSeconds"`
	ContractInteractions int     `json:"contractInteractions"`
	TimestampMillis      int64   `json:"timestampMillis"`
	SenderScore          float64 `json:"senderScore"`

	// Extension fields.
	HasPersonalData bool    `json:"hasPersonalData"`
	Jurisdiction    string  `json:"jurisdiction"`
	ConsentGiven    bool    `json:"consentGiven"`
	TreasurySize    float64 `json:"treasurySize"`
}

// Hour returns the event's UTC hour of day [0,23]. Scorers derive
// time-of-day signals from the event timestamp, not the wall clock,
// so scoring stays deterministic for a given event.
func (e *TransactionEvent) Hour() int {
	return time.UnixMilli(e.TimestampMillis).UTC().Hour()
}

// Validate rejects malformed numeric fields.
func (e *TransactionEvent) Validate() error {
	if e.Amount < 0 {
		return fmt.Errorf("%w: negative amount %f", ErrValidation, e.Amount)
	}
	if e.ExecutionTimeSeconds < 0 {
		return fmt.Errorf("%w: negative execution time %f", ErrValidation, e.ExecutionTimeSeconds)
	}
	if e.ContractInteractions < 0 {
		return fmt.Errorf("%w: negative contract interactions %d", ErrValidation, e.ContractInteractions)
	}
	return nil
}

// Vector is the normalized feature vector derived from one event.
// Computed once per request, never mutated.
type Vector struct {
	Amount     float64 `json:"amount"`
	Speed      float64 `json:"speed"`
	Contracts  float64 `json:"contracts"`
	Time       float64 `json:"time"`
	Reputation float64 `json:"reputation"`
}

// Normalize converts an event into its feature vector.
//
// Rules are fixed for testability:
//
//	amount:     min(amount / 1M, 1)
//	speed:      0.9 if execution < 60s else 0.1
//	contracts:  min(interactions / 10, 1)
//	time:       hourOfDay / 24
//	reputation: senderScore / 100, clamped to [0,1]
func Normalize(e *TransactionEvent) (Vector, error) {
	if err := e.Validate(); err != nil {
		return Vector{}, err
	}

	speed := 0.1
	if e.ExecutionTimeSeconds < flashWindowSecs {
		speed = 0.9
	}

	return Vector{
		Amount:     math.Min(e.Amount/amountScale, 1),
		Speed:      speed,
		Contracts:  math.Min(float64(e.ContractInteractions)/contractsScale, 1),
		Time:       float64(e.Hour()) / 24,
		Reputation: clamp01(e.SenderScore / 100),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
