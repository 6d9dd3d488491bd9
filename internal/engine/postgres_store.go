package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbd888/sentinel/internal/patterns"
)

// PostgresStore persists decisions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed decision store.
// The decisions table is created by migrations/ (see cmd/migrate).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, d *Decision) error {
	breakdownJSON, err := json.Marshal(d.ScorerBreakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, consensus_score, action, reasoning, confidence, breakdown, fingerprint, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`,
		d.DecisionID,
		d.ConsensusScore,
		string(d.Action),
		d.Reasoning,
		d.Confidence,
		breakdownJSON,
		d.Fingerprint,
		time.UnixMilli(d.TimestampMillis),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Decision, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, consensus_score, action, reasoning, confidence, breakdown, fingerprint, decided_at
		FROM decisions
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Decision
	for rows.Next() {
		var d Decision
		var action string
		var breakdownJSON []byte
		var decidedAt time.Time

		if err := rows.Scan(&d.DecisionID, &d.ConsensusScore, &action, &d.Reasoning,
			&d.Confidence, &breakdownJSON, &d.Fingerprint, &decidedAt); err != nil {
			continue
		}
		d.Action = patterns.Action(action)
		d.TimestampMillis = decidedAt.UnixMilli()
		_ = json.Unmarshal(breakdownJSON, &d.ScorerBreakdown)
		out = append(out, &d)
	}
	return out, rows.Err()
}
