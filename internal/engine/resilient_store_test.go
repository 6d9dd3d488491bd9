package engine

import (
	"context"
	"errors"
	"testing"
)

// flakyStore fails the first failUntil calls to Record, then succeeds.
type flakyStore struct {
	inner     Store
	calls     int
	failUntil int
}

func (f *flakyStore) Record(ctx context.Context, d *Decision) error {
	f.calls++
	if f.calls <= f.failUntil {
		return errors.New("connection reset")
	}
	return f.inner.Record(ctx, d)
}

func (f *flakyStore) ListRecent(ctx context.Context, limit int) ([]*Decision, error) {
	return f.inner.ListRecent(ctx, limit)
}

func TestResilientStore_RetriesTransientFailures(t *testing.T) {
	flaky := &flakyStore{inner: NewMemoryStore(), failUntil: 2}
	rs := NewResilientStore(flaky)
	rs.baseDelay = 0

	err := rs.Record(context.Background(), &Decision{DecisionID: 1})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("calls = %d, want 3 (two failures then success)", flaky.calls)
	}

	decisions, err := rs.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(decisions) != 1 {
		t.Errorf("got %d decisions, want 1", len(decisions))
	}
}

func TestResilientStore_GivesUpAfterMaxAttempts(t *testing.T) {
	flaky := &flakyStore{inner: NewMemoryStore(), failUntil: 100}
	rs := NewResilientStore(flaky)
	rs.baseDelay = 0

	err := rs.Record(context.Background(), &Decision{DecisionID: 1})
	if err == nil {
		t.Fatal("expected error when store keeps failing")
	}
	if flaky.calls != rs.maxAttempts {
		t.Errorf("calls = %d, want %d", flaky.calls, rs.maxAttempts)
	}
}

func TestResilientStore_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	flaky := &flakyStore{inner: NewMemoryStore(), failUntil: 1 << 30}
	rs := NewResilientStore(flaky)
	rs.baseDelay = 0

	// Each Record exhausts its retries and counts one breaker failure.
	for i := 0; i < 5; i++ {
		_ = rs.Record(context.Background(), &Decision{DecisionID: int64(i)})
	}

	callsBefore := flaky.calls
	err := rs.Record(context.Background(), &Decision{DecisionID: 99})
	if err == nil {
		t.Fatal("expected fail-fast error with open circuit")
	}
	if flaky.calls != callsBefore {
		t.Errorf("inner store was called with open circuit (calls %d -> %d)", callsBefore, flaky.calls)
	}

	if _, err := rs.ListRecent(context.Background(), 10); err == nil {
		t.Error("expected ListRecent to fail fast with open circuit")
	}
}

func TestResilientStore_CancelledContextNotRetried(t *testing.T) {
	flaky := &flakyStore{inner: NewMemoryStore(), failUntil: 100}
	rs := NewResilientStore(flaky)
	rs.baseDelay = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rs.Record(ctx, &Decision{DecisionID: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if flaky.calls != 0 {
		t.Errorf("calls = %d, want 0 (cancelled before reaching the store)", flaky.calls)
	}
}

func TestResilientStore_PassesThroughOnSuccess(t *testing.T) {
	rs := NewResilientStore(NewMemoryStore())

	for i := int64(1); i <= 3; i++ {
		if err := rs.Record(context.Background(), &Decision{DecisionID: i, ConsensusScore: int(i)}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	decisions, err := rs.ListRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(decisions))
	}
}
