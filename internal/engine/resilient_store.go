package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/sentinel/internal/circuitbreaker"
	"github.com/mbd888/sentinel/internal/retry"
)

const storeBreakerKey = "audit_store"

// ResilientStore wraps a Store with retries and a circuit breaker so a
// struggling database does not stall audit writes. Writes are retried
// with backoff; once the circuit trips, writes fail fast until the
// backend recovers.
type ResilientStore struct {
	inner       Store
	breaker     *circuitbreaker.Breaker
	maxAttempts int
	baseDelay   time.Duration
}

// NewResilientStore wraps inner with retry and circuit breaker protection.
func NewResilientStore(inner Store) *ResilientStore {
	return &ResilientStore{
		inner:       inner,
		breaker:     circuitbreaker.New(5, 30*time.Second),
		maxAttempts: 3,
		baseDelay:   100 * time.Millisecond,
	}
}

// Record writes the decision through the circuit breaker, retrying
// transient failures. Context cancellation is treated as permanent.
func (s *ResilientStore) Record(ctx context.Context, d *Decision) error {
	if !s.breaker.Allow(storeBreakerKey) {
		return fmt.Errorf("audit store circuit open, dropping decision %d", d.DecisionID)
	}

	err := retry.Do(ctx, s.maxAttempts, s.baseDelay, func() error {
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		return s.inner.Record(ctx, d)
	})
	if err != nil {
		s.breaker.RecordFailure(storeBreakerKey)
		return err
	}
	s.breaker.RecordSuccess(storeBreakerKey)
	return nil
}

// ListRecent reads through without retries. Reads surface errors
// directly to the caller.
func (s *ResilientStore) ListRecent(ctx context.Context, limit int) ([]*Decision, error) {
	if !s.breaker.Allow(storeBreakerKey) {
		return nil, fmt.Errorf("audit store circuit open")
	}
	decisions, err := s.inner.ListRecent(ctx, limit)
	if err != nil {
		s.breaker.RecordFailure(storeBreakerKey)
		return nil, err
	}
	s.breaker.RecordSuccess(storeBreakerKey)
	return decisions, nil
}
