// Package fingerprint produces deterministic, one-way digests of
// transaction events for audit correlation.
//
// The fingerprint is a Keccak-256 hash of a canonical serialization,
// truncated for display. It never exposes raw fields and cannot be
// reversed; it is a correlation handle, not a proof.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mbd888/sentinel/internal/features"
)

// DisplayLength is the number of hex characters kept from the digest.
const DisplayLength = 16

// New computes the truncated fingerprint of an event. Identical event
// content always yields an identical fingerprint.
func New(e *features.TransactionEvent) string {
	digest := crypto.Keccak256([]byte(canonical(e)))
	return hex.EncodeToString(digest)[:DisplayLength]
}

// canonical serializes every event field in a fixed order with a fixed
// float format so that bit-identical events serialize identically.
func canonical(e *features.TransactionEvent) string {
	return fmt.Sprintf("v1|%s|%s|%d|%d|%s|%t|%s|%t|%s",
		formatFloat(e.Amount),
		formatFloat(e.ExecutionTimeSeconds),
		e.ContractInteractions,
		e.TimestampMillis,
		formatFloat(e.SenderScore),
		e.HasPersonalData,
		e.Jurisdiction,
		e.ConsentGiven,
		formatFloat(e.TreasurySize),
	)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
