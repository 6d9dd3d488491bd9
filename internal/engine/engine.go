// Package engine orchestrates the consensus threat-scoring pipeline.
//
// One Analyze call normalizes the event, runs the three signal scorers
// and the adaptive guardian concurrently, combines the four results
// into a consensus decision, and appends the decision to pattern
// memory. The feedback loop later accepts ground truth for a decision
// and updates per-scorer accuracy counters.
//
// No individual scorer failure fails the Analyze call: a scorer that
// panics or times out contributes the neutral default score instead.
// Only malformed input is rejected at the boundary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/fingerprint"
	"github.com/mbd888/sentinel/internal/guardian"
	"github.com/mbd888/sentinel/internal/metrics"
	"github.com/mbd888/sentinel/internal/patterns"
	"github.com/mbd888/sentinel/internal/scorers"
	"github.com/mbd888/sentinel/internal/traces"
)

// ErrUnknownDecision is reported when feedback references a decision id
// that is not (or no longer) held in pattern memory.
var ErrUnknownDecision = errors.New("engine: unknown decision id")

// DefaultScorerTimeout bounds each scorer's execution. Scoring is
// CPU-bound and expected to finish in microseconds; the timeout only
// guards against a misbehaving pluggable scorer.
const DefaultScorerTimeout = 2 * time.Second

// Publisher receives decisions and outcomes as they happen. Wired to
// the realtime hub by the server; nil publishers are skipped.
type Publisher interface {
	PublishDecision(d *Decision)
	PublishOutcome(decisionID int64, outcome patterns.Outcome, correct bool)
}

// Engine is the consensus threat-scoring engine.
type Engine struct {
	signal    []scorers.Scorer
	guardian  *guardian.Guardian
	memory    *patterns.Memory
	store     Store
	logger    *slog.Logger
	publisher Publisher
	weights   Weights
	timeout   time.Duration

	ids idSequence

	mu             sync.Mutex
	accuracy       map[string]*AccuracyMetrics
	totalAnalyses  int64
	threatsFlagged int64
}

// idSequence issues unique, strictly increasing decision ids. The
// sequence is seeded from the clock at construction so ids issued by
// earlier process runs are never reissued against a persisted audit
// table; the shift leaves room for 1024 ids per millisecond of uptime.
type idSequence struct {
	mu   sync.Mutex
	next int64
}

func seedIDSequence() int64 {
	return time.Now().UnixMilli() << 10
}

func (s *idSequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStore sets the decision audit store.
func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithPublisher sets the decision/outcome publisher.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithWeights overrides the equal-weight consensus vector.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithScorerTimeout overrides the per-scorer execution bound.
func WithScorerTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithScorers replaces the default signal scorers (for testing).
func WithScorers(s ...scorers.Scorer) Option {
	return func(e *Engine) { e.signal = s }
}

// New creates an engine over the given pattern memory and guardian.
func New(memory *patterns.Memory, g *guardian.Guardian, opts ...Option) *Engine {
	e := &Engine{
		ids:      idSequence{next: seedIDSequence()},
		signal:   scorers.Signal(),
		guardian: g,
		memory:   memory,
		logger:   slog.Default(),
		weights:  EqualWeights(),
		timeout:  DefaultScorerTimeout,
		accuracy: map[string]*AccuracyMetrics{
			scorers.ScorerRisk:     {},
			scorers.ScorerPrivacy:  {},
			scorers.ScorerTreasury: {},
			scorers.ScorerGuardian: {},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze scores one transaction event and returns the consensus
// decision. The decision and its pattern-memory append are atomic from
// the caller's perspective: nothing is committed if the context is
// cancelled before all scorer results are gathered.
func (e *Engine) Analyze(ctx context.Context, event *features.TransactionEvent) (*Decision, error) {
	ctx, span := traces.StartSpan(ctx, "engine.Analyze")
	defer span.End()

	applyFallbacks(event)

	vec, err := features.Normalize(event)
	if err != nil {
		return nil, err
	}

	// The three signal scorers and the guardian are independent: none
	// observes another's output, so they run concurrently and join here.
	var wg sync.WaitGroup
	results := make([]scorers.ScoreResult, len(e.signal))
	for i, s := range e.signal {
		wg.Add(1)
		go func(i int, s scorers.Scorer) {
			defer wg.Done()
			results[i] = e.runScorer(ctx, s, event)
		}(i, s)
	}

	var assessment guardian.Assessment
	wg.Add(1)
	go func() {
		defer wg.Done()
		assessment = e.runGuardian(ctx, event, vec)
	}()
	wg.Wait()

	// Discard everything on cancellation: no partial state reaches
	// pattern memory for an uncompleted decision.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	breakdown := Breakdown{
		Risk:              pick(results, scorers.ScorerRisk),
		PrivacyCompliance: pick(results, scorers.ScorerPrivacy),
		TreasuryImpact:    pick(results, scorers.ScorerTreasury),
		Guardian:          assessment.Result,
	}

	consensus := Combine(breakdown, e.weights)
	action := ActionFor(consensus)

	decision := &Decision{
		ConsensusScore:  consensus,
		Action:          action,
		Reasoning:       consensusReasoning[action],
		Confidence:      breakdown.meanConfidence(),
		ScorerBreakdown: breakdown,
		Fingerprint:     fingerprint.New(event),
		DecisionID:      e.ids.Next(),
		TimestampMillis: time.Now().UnixMilli(),
	}

	e.memory.Append(patterns.Entry{
		Event: *event,
		Decision: patterns.Record{
			ID:          decision.DecisionID,
			Features:    vec,
			Probability: assessment.Probability,
			Action:      action,
			Reasoning:   decision.Reasoning,
			Confidence:  decision.Confidence,
			Breakdown:   breakdown.scores(),
			CreatedAt:   time.Now(),
		},
	})

	e.mu.Lock()
	e.totalAnalyses++
	if action == patterns.ActionAlert || action == patterns.ActionBlock {
		e.threatsFlagged++
	}
	e.mu.Unlock()

	metrics.AnalysesTotal.Inc()
	metrics.DecisionsTotal.WithLabelValues(string(action)).Inc()
	metrics.PatternMemorySize.Set(float64(e.memory.Len()))

	e.logger.Debug("decision",
		"id", decision.DecisionID,
		"action", action,
		"consensus", consensus,
		"fingerprint", decision.Fingerprint)

	if e.publisher != nil {
		e.publisher.PublishDecision(decision)
	}

	// Persist asynchronously (best-effort audit trail).
	if e.store != nil {
		go func(d Decision) {
			if err := e.store.Record(context.Background(), &d); err != nil {
				e.logger.Warn("decision audit write failed", "id", d.DecisionID, "error", err)
			}
		}(*decision)
	}

	return decision, nil
}

// RecordOutcome accepts ground truth for a prior decision. Returns
// false when the decision id is unknown; that is not a fatal error.
func (e *Engine) RecordOutcome(ctx context.Context, decisionID int64, outcome patterns.Outcome) bool {
	_, span := traces.StartSpan(ctx, "engine.RecordOutcome")
	defer span.End()

	rec, ok := e.memory.SetOutcome(decisionID, outcome)
	if !ok {
		e.logger.Debug("outcome for unknown decision", "id", decisionID)
		return false
	}

	threat := outcome == patterns.OutcomeThreat

	e.mu.Lock()
	for scorerID, score := range rec.Breakdown {
		acc, ok := e.accuracy[scorerID]
		if !ok {
			acc = &AccuracyMetrics{}
			e.accuracy[scorerID] = acc
		}
		// A scorer's implied stance: scores above the alert threshold
		// flag the transaction as a threat.
		flagged := score > float64(alertOver)
		acc.Total++
		if flagged == threat {
			acc.Correct++
		}
	}
	e.mu.Unlock()

	decisionCorrect := flaggedAction(rec.Action) == threat
	metrics.OutcomesTotal.WithLabelValues(string(outcome), fmt.Sprintf("%t", decisionCorrect)).Inc()

	e.logger.Info("outcome recorded",
		"id", decisionID,
		"outcome", outcome,
		"action", rec.Action,
		"correct", decisionCorrect)

	if e.publisher != nil {
		e.publisher.PublishOutcome(decisionID, outcome, decisionCorrect)
	}

	return true
}

// Metrics is the engine's aggregate accuracy report.
type Metrics struct {
	TotalAnalyses     int64                      `json:"totalAnalyses"`
	ThreatsFlagged    int64                      `json:"threatsFlagged"`
	PerScorerAccuracy map[string]AccuracyMetrics `json:"perScorerAccuracy"`
	MemorySize        int                        `json:"memorySize"`
}

// GetMetrics returns a snapshot of lifetime counters.
func (e *Engine) GetMetrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	per := make(map[string]AccuracyMetrics, len(e.accuracy))
	for id, acc := range e.accuracy {
		per[id] = *acc
	}
	return Metrics{
		TotalAnalyses:     e.totalAnalyses,
		ThreatsFlagged:    e.threatsFlagged,
		PerScorerAccuracy: per,
		MemorySize:        e.memory.Len(),
	}
}

// Memory exposes the pattern memory for read-side consumers.
func (e *Engine) Memory() *patterns.Memory { return e.memory }

// runScorer executes one scorer with panic recovery and a timeout.
// Failures degrade to the neutral default; they never fail Analyze.
func (e *Engine) runScorer(ctx context.Context, s scorers.Scorer, event *features.TransactionEvent) scorers.ScoreResult {
	ch := make(chan scorers.ScoreResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("scorer panic", "scorer", s.Name(), "panic", r)
				ch <- scorers.Neutral(s.Name())
			}
		}()
		ch <- s.Score(event)
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.Degraded {
			metrics.ScorerDegradedTotal.WithLabelValues(s.Name()).Inc()
		}
		return r
	case <-timer.C:
		e.logger.Warn("scorer timeout", "scorer", s.Name())
		metrics.ScorerDegradedTotal.WithLabelValues(s.Name()).Inc()
		return scorers.Neutral(s.Name())
	case <-ctx.Done():
		return scorers.Neutral(s.Name())
	}
}

// runGuardian mirrors runScorer but keeps the full assessment, which
// carries the predicted probability for the decision record.
func (e *Engine) runGuardian(ctx context.Context, event *features.TransactionEvent, vec features.Vector) guardian.Assessment {
	ch := make(chan guardian.Assessment, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("guardian panic", "panic", r)
				ch <- neutralAssessment()
			}
		}()
		ch <- e.guardian.Evaluate(event, vec)
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case a := <-ch:
		return a
	case <-timer.C:
		e.logger.Warn("guardian timeout")
		metrics.ScorerDegradedTotal.WithLabelValues(scorers.ScorerGuardian).Inc()
		return neutralAssessment()
	case <-ctx.Done():
		return neutralAssessment()
	}
}

func neutralAssessment() guardian.Assessment {
	return guardian.Assessment{
		Result:      scorers.Neutral(scorers.ScorerGuardian),
		Probability: scorers.NeutralScore / 100,
		Action:      patterns.ActionMonitor,
	}
}

// applyFallbacks fills defensive defaults for fields the transport
// layer may have left unset.
func applyFallbacks(e *features.TransactionEvent) {
	if e.TimestampMillis == 0 {
		e.TimestampMillis = time.Now().UnixMilli()
	}
	if e.TreasurySize <= 0 {
		e.TreasurySize = features.DefaultTreasurySize
	}
}

func pick(results []scorers.ScoreResult, scorerID string) scorers.ScoreResult {
	for _, r := range results {
		if r.ScorerID == scorerID {
			return r
		}
	}
	// A missing result substitutes the neutral default rather than
	// failing the ensemble.
	return scorers.Neutral(scorerID)
}

func flaggedAction(a patterns.Action) bool {
	return a == patterns.ActionAlert || a == patterns.ActionBlock
}
