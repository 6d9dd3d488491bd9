package engine

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/guardian"
	"github.com/mbd888/sentinel/internal/patterns"
	"github.com/mbd888/sentinel/internal/scorers"
)

// atHour returns a timestamp for the given UTC hour of day.
func atHour(hour int) int64 {
	return time.Date(2024, 1, 15, hour, 0, 0, 0, time.UTC).UnixMilli()
}

func newTestEngine(opts ...Option) *Engine {
	mem := patterns.NewMemory(patterns.DefaultCapacity)
	g := guardian.New(guardian.DefaultProfile(), mem)
	return New(mem, g, opts...)
}

func threatEvent() *features.TransactionEvent {
	return &features.TransactionEvent{
		Amount:               2_000_000,
		ExecutionTimeSeconds: 10,
		ContractInteractions: 12,
		TimestampMillis:      atHour(3),
		SenderScore:          10,
		HasPersonalData:      true,
		Jurisdiction:         "EU",
		ConsentGiven:         false,
		TreasurySize:         1_000_000,
	}
}

func benignEvent() *features.TransactionEvent {
	return &features.TransactionEvent{
		Amount:               500,
		ExecutionTimeSeconds: 300,
		ContractInteractions: 1,
		TimestampMillis:      atHour(14),
		SenderScore:          90,
		Jurisdiction:         "US",
		ConsentGiven:         true,
		TreasurySize:         1_000_000,
	}
}

func TestAnalyze_ThreatScenarioBlocks(t *testing.T) {
	e := newTestEngine()

	d, err := e.Analyze(context.Background(), threatEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if d.Action != patterns.ActionBlock {
		t.Errorf("action = %s, want block (consensus %d)", d.Action, d.ConsensusScore)
	}
	if d.ConsensusScore <= 80 {
		t.Errorf("consensus = %d, want > 80", d.ConsensusScore)
	}
	if d.ScorerBreakdown.Risk.Score != 100 {
		t.Errorf("risk score = %f, want 100", d.ScorerBreakdown.Risk.Score)
	}
	if d.ScorerBreakdown.TreasuryImpact.Score != 100 {
		t.Errorf("treasury score = %f, want 100", d.ScorerBreakdown.TreasuryImpact.Score)
	}
	if d.ScorerBreakdown.PrivacyCompliance.Score != 75 {
		t.Errorf("privacy score = %f, want 75", d.ScorerBreakdown.PrivacyCompliance.Score)
	}
	if len(d.Fingerprint) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(d.Fingerprint))
	}
}

func TestAnalyze_BenignScenarioAllows(t *testing.T) {
	e := newTestEngine()

	d, err := e.Analyze(context.Background(), benignEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if d.Action != patterns.ActionAllow {
		t.Errorf("action = %s, want allow (consensus %d)", d.Action, d.ConsensusScore)
	}
	if d.ConsensusScore >= 30 {
		t.Errorf("consensus = %d, want < 30", d.ConsensusScore)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	e := newTestEngine()

	first, err := e.Analyze(context.Background(), threatEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := e.Analyze(context.Background(), threatEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if first.ConsensusScore != second.ConsensusScore {
		t.Errorf("consensus differs: %d vs %d", first.ConsensusScore, second.ConsensusScore)
	}
	if first.Action != second.Action {
		t.Errorf("action differs: %s vs %s", first.Action, second.Action)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Errorf("fingerprint differs: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
	if first.DecisionID == second.DecisionID {
		t.Errorf("decision ids must be unique, both %d", first.DecisionID)
	}
}

func TestAnalyze_IncreasingDecisionIDs(t *testing.T) {
	e := newTestEngine()

	var last int64
	for i := 0; i < 5; i++ {
		d, err := e.Analyze(context.Background(), benignEvent())
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if d.DecisionID <= last {
			t.Fatalf("decision id %d not greater than previous %d", d.DecisionID, last)
		}
		last = d.DecisionID
	}
}

func TestAnalyze_DecisionIDsNotReusedAcrossEngines(t *testing.T) {
	first := newTestEngine()
	d1, err := first.Analyze(context.Background(), benignEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// A later engine (a restarted process) must issue ids strictly
	// beyond anything the earlier one handed out, or a persisted audit
	// table would silently drop the colliding rows.
	time.Sleep(2 * time.Millisecond)
	second := newTestEngine()
	d2, err := second.Analyze(context.Background(), benignEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if d2.DecisionID <= d1.DecisionID {
		t.Errorf("fresh engine issued id %d, not greater than earlier engine's %d", d2.DecisionID, d1.DecisionID)
	}
}

func TestAnalyze_RejectsMalformedEvent(t *testing.T) {
	e := newTestEngine()

	bad := benignEvent()
	bad.Amount = -1

	if _, err := e.Analyze(context.Background(), bad); err == nil {
		t.Fatal("expected validation error for negative amount")
	}
	if e.Memory().Len() != 0 {
		t.Errorf("memory size = %d after rejected event, want 0", e.Memory().Len())
	}
}

func TestAnalyze_AppendsToMemory(t *testing.T) {
	e := newTestEngine()

	d, err := e.Analyze(context.Background(), benignEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if e.Memory().Len() != 1 {
		t.Fatalf("memory size = %d, want 1", e.Memory().Len())
	}
	entries := e.Memory().Snapshot()
	if entries[0].Decision.ID != d.DecisionID {
		t.Errorf("stored decision id = %d, want %d", entries[0].Decision.ID, d.DecisionID)
	}
	if len(entries[0].Decision.Breakdown) != 4 {
		t.Errorf("stored breakdown has %d scores, want 4", len(entries[0].Decision.Breakdown))
	}
}

func TestAnalyze_CancelledContextCommitsNothing(t *testing.T) {
	e := newTestEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Analyze(ctx, benignEvent()); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if e.Memory().Len() != 0 {
		t.Errorf("memory size = %d after cancelled analyze, want 0", e.Memory().Len())
	}
	if got := e.GetMetrics().TotalAnalyses; got != 0 {
		t.Errorf("totalAnalyses = %d after cancelled analyze, want 0", got)
	}
}

// stubScorer is a pluggable scorer for failure-path tests.
type stubScorer struct {
	id    string
	score float64
	panic bool
	delay time.Duration
}

func (s stubScorer) Name() string { return s.id }

func (s stubScorer) Score(*features.TransactionEvent) scorers.ScoreResult {
	if s.panic {
		panic("stub scorer failure")
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return scorers.ScoreResult{ScorerID: s.id, Score: s.score, Confidence: 1}
}

func TestAnalyze_PanickingScorerDegradesToNeutral(t *testing.T) {
	e := newTestEngine(WithScorers(
		stubScorer{id: scorers.ScorerRisk, panic: true},
		stubScorer{id: scorers.ScorerPrivacy, score: 20},
		stubScorer{id: scorers.ScorerTreasury, score: 20},
	))

	d, err := e.Analyze(context.Background(), benignEvent())
	if err != nil {
		t.Fatalf("Analyze must survive a scorer panic, got %v", err)
	}

	risk := d.ScorerBreakdown.Risk
	if risk.Score != scorers.NeutralScore {
		t.Errorf("panicked scorer score = %f, want neutral %f", risk.Score, scorers.NeutralScore)
	}
	if !risk.Degraded {
		t.Error("panicked scorer result should be marked degraded")
	}
	if risk.Confidence != 0 {
		t.Errorf("degraded confidence = %f, want 0", risk.Confidence)
	}
}

func TestAnalyze_SlowScorerTimesOut(t *testing.T) {
	e := newTestEngine(
		WithScorers(
			stubScorer{id: scorers.ScorerRisk, delay: 500 * time.Millisecond, score: 100},
			stubScorer{id: scorers.ScorerPrivacy, score: 0},
			stubScorer{id: scorers.ScorerTreasury, score: 0},
		),
		WithScorerTimeout(20*time.Millisecond),
	)

	d, err := e.Analyze(context.Background(), benignEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if d.ScorerBreakdown.Risk.Score != scorers.NeutralScore {
		t.Errorf("timed-out scorer score = %f, want neutral %f",
			d.ScorerBreakdown.Risk.Score, scorers.NeutralScore)
	}
}

func TestRecordOutcome_UpdatesAccuracy(t *testing.T) {
	e := newTestEngine()

	d, err := e.Analyze(context.Background(), threatEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !e.RecordOutcome(context.Background(), d.DecisionID, patterns.OutcomeThreat) {
		t.Fatal("RecordOutcome returned false for a known decision")
	}

	m := e.GetMetrics()
	for _, id := range []string{
		scorers.ScorerRisk, scorers.ScorerPrivacy, scorers.ScorerTreasury, scorers.ScorerGuardian,
	} {
		acc, ok := m.PerScorerAccuracy[id]
		if !ok {
			t.Fatalf("no accuracy entry for %s", id)
		}
		if acc.Total != 1 {
			t.Errorf("%s total = %d, want 1", id, acc.Total)
		}
	}

	// All four scorers flagged the threat scenario above 60, so the
	// threat outcome marks all of them correct.
	for _, id := range []string{
		scorers.ScorerRisk, scorers.ScorerPrivacy, scorers.ScorerTreasury, scorers.ScorerGuardian,
	} {
		if acc := m.PerScorerAccuracy[id]; acc.Correct != 1 {
			t.Errorf("%s correct = %d, want 1", id, acc.Correct)
		}
	}
}

func TestRecordOutcome_SafeOutcomePenalizesFlaggers(t *testing.T) {
	e := newTestEngine()

	d, err := e.Analyze(context.Background(), threatEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	e.RecordOutcome(context.Background(), d.DecisionID, patterns.OutcomeSafe)

	m := e.GetMetrics()
	// Every scorer flagged the event; a safe outcome means all were wrong.
	for id, acc := range m.PerScorerAccuracy {
		if acc.Total != 1 {
			t.Errorf("%s total = %d, want 1", id, acc.Total)
		}
		if acc.Correct != 0 {
			t.Errorf("%s correct = %d, want 0", id, acc.Correct)
		}
	}
}

func TestRecordOutcome_UnknownDecision(t *testing.T) {
	e := newTestEngine()

	if _, err := e.Analyze(context.Background(), benignEvent()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	before := e.GetMetrics()

	if e.RecordOutcome(context.Background(), 999999, patterns.OutcomeThreat) {
		t.Fatal("RecordOutcome returned true for unknown decision id")
	}

	after := e.GetMetrics()
	for id, acc := range after.PerScorerAccuracy {
		if acc != before.PerScorerAccuracy[id] {
			t.Errorf("%s accuracy changed after unknown-id outcome: %+v vs %+v",
				id, acc, before.PerScorerAccuracy[id])
		}
	}
}

func TestGetMetrics_Counters(t *testing.T) {
	e := newTestEngine()

	if _, err := e.Analyze(context.Background(), threatEvent()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := e.Analyze(context.Background(), benignEvent()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	m := e.GetMetrics()
	if m.TotalAnalyses != 2 {
		t.Errorf("totalAnalyses = %d, want 2", m.TotalAnalyses)
	}
	if m.ThreatsFlagged != 1 {
		t.Errorf("threatsFlagged = %d, want 1", m.ThreatsFlagged)
	}
	if m.MemorySize != 2 {
		t.Errorf("memorySize = %d, want 2", m.MemorySize)
	}
}

// capturePublisher records published events for assertion.
type capturePublisher struct {
	decisions []*Decision
	outcomes  []int64
}

func (p *capturePublisher) PublishDecision(d *Decision) { p.decisions = append(p.decisions, d) }
func (p *capturePublisher) PublishOutcome(id int64, _ patterns.Outcome, _ bool) {
	p.outcomes = append(p.outcomes, id)
}

func TestEngine_PublishesDecisionsAndOutcomes(t *testing.T) {
	pub := &capturePublisher{}
	e := newTestEngine(WithPublisher(pub))

	d, err := e.Analyze(context.Background(), benignEvent())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	e.RecordOutcome(context.Background(), d.DecisionID, patterns.OutcomeSafe)

	if len(pub.decisions) != 1 || pub.decisions[0].DecisionID != d.DecisionID {
		t.Errorf("published decisions = %+v, want one with id %d", pub.decisions, d.DecisionID)
	}
	if len(pub.outcomes) != 1 || pub.outcomes[0] != d.DecisionID {
		t.Errorf("published outcomes = %v, want [%d]", pub.outcomes, d.DecisionID)
	}
}
