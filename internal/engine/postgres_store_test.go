package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/sentinel/internal/engine"
	"github.com/mbd888/sentinel/internal/patterns"
	"github.com/mbd888/sentinel/internal/scorers"
	"github.com/mbd888/sentinel/internal/testutil"
)

func TestPostgresStore_RecordAndList(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := engine.NewPostgresStore(db)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		d := &engine.Decision{
			DecisionID:      i,
			ConsensusScore:  int(i * 20),
			Action:          patterns.ActionMonitor,
			Reasoning:       "scorer consensus inconclusive, transaction under watch",
			Confidence:      0.6,
			Fingerprint:     "00112233445566ff",
			TimestampMillis: time.Now().UnixMilli(),
			ScorerBreakdown: engine.Breakdown{
				Risk: scorers.ScoreResult{ScorerID: scorers.ScorerRisk, Score: 40},
			},
		}
		if err := store.Record(ctx, d); err != nil {
			t.Fatalf("record decision %d: %v", i, err)
		}
	}

	// Duplicate writes are ignored, not errors
	if err := store.Record(ctx, &engine.Decision{DecisionID: 1, Action: patterns.ActionAllow}); err != nil {
		t.Fatalf("duplicate record: %v", err)
	}

	decisions, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(decisions))
	}
	if decisions[0].DecisionID != 3 {
		t.Errorf("first decision id = %d, want newest (3)", decisions[0].DecisionID)
	}
	if decisions[0].ScorerBreakdown.Risk.Score != 40 {
		t.Errorf("breakdown risk score = %f, want 40", decisions[0].ScorerBreakdown.Risk.Score)
	}
}
