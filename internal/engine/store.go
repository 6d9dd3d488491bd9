package engine

import "context"

// Store persists decisions for the audit trail. Persistence is
// best-effort: the engine's correctness never depends on it.
type Store interface {
	Record(ctx context.Context, d *Decision) error
	ListRecent(ctx context.Context, limit int) ([]*Decision, error)
}
