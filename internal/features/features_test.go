package features

import (
	"errors"
	"testing"
	"time"
)

// millisAtHour builds a timestamp at the given UTC hour.
func millisAtHour(hour int) int64 {
	return time.Date(2026, 3, 14, hour, 30, 0, 0, time.UTC).UnixMilli()
}

func TestNormalizeKnownValues(t *testing.T) {
	e := &TransactionEvent{
		Amount:               500_000,
		ExecutionTimeSeconds: 10,
		ContractInteractions: 5,
		TimestampMillis:      millisAtHour(12),
		SenderScore:          80,
	}

	v, err := Normalize(e)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if v.Amount != 0.5 {
		t.Errorf("amount feature = %f, want 0.5", v.Amount)
	}
	if v.Speed != 0.9 {
		t.Errorf("speed feature = %f, want 0.9 for sub-minute execution", v.Speed)
	}
	if v.Contracts != 0.5 {
		t.Errorf("contracts feature = %f, want 0.5", v.Contracts)
	}
	if v.Time != 0.5 {
		t.Errorf("time feature = %f, want 0.5 for hour 12", v.Time)
	}
	if v.Reputation != 0.8 {
		t.Errorf("reputation feature = %f, want 0.8", v.Reputation)
	}
}

func TestNormalizeCapsAtOne(t *testing.T) {
	e := &TransactionEvent{
		Amount:               50_000_000,
		ExecutionTimeSeconds: 600,
		ContractInteractions: 40,
		TimestampMillis:      millisAtHour(23),
		SenderScore:          250, // out of range, clamped
	}

	v, err := Normalize(e)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if v.Amount != 1 {
		t.Errorf("amount feature = %f, want 1", v.Amount)
	}
	if v.Speed != 0.1 {
		t.Errorf("speed feature = %f, want 0.1 for slow execution", v.Speed)
	}
	if v.Contracts != 1 {
		t.Errorf("contracts feature = %f, want 1", v.Contracts)
	}
	if v.Reputation != 1 {
		t.Errorf("reputation feature = %f, want clamped to 1", v.Reputation)
	}
}

func TestNormalizeRejectsNegatives(t *testing.T) {
	cases := []struct {
		name  string
		event TransactionEvent
	}{
		{"negative amount", TransactionEvent{Amount: -1}},
		{"negative execution time", TransactionEvent{ExecutionTimeSeconds: -0.5}},
		{"negative interactions", TransactionEvent{ContractInteractions: -3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(&tc.event)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Normalize = %v, want ErrValidation", err)
			}
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	e := &TransactionEvent{
		Amount:               123_456,
		ExecutionTimeSeconds: 42,
		ContractInteractions: 3,
		TimestampMillis:      millisAtHour(4),
		SenderScore:          66,
	}

	a, err := Normalize(e)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	b, err := Normalize(e)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if a != b {
		t.Errorf("vectors differ for identical events: %+v vs %+v", a, b)
	}
}

func TestHourUsesUTC(t *testing.T) {
	e := &TransactionEvent{TimestampMillis: millisAtHour(3)}
	if got := e.Hour(); got != 3 {
		t.Errorf("Hour() = %d, want 3", got)
	}
}
