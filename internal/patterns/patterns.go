// Package patterns provides the bounded pattern memory shared by the
// guardian and the feedback loop.
//
// Memory is an insertion-ordered FIFO of past (event, decision, outcome)
// triples. Appends and outcome updates are serialized under a single
// mutex; similarity lookups read a consistent snapshot. Once capacity is
// exceeded the oldest entries are evicted, strictly first-in first-out.
package patterns

import (
	"math"
	"sync"
	"time"

	"github.com/mbd888/sentinel/internal/features"
)

// DefaultCapacity bounds the memory when no capacity is configured.
const DefaultCapacity = 1000

// Action is the verdict attached to a decision record.
type Action string

const (
	ActionAllow   Action = "allow"
	ActionMonitor Action = "monitor"
	ActionAlert   Action = "alert"
	ActionBlock   Action = "block"
)

// Outcome is the ground truth learned after the fact.
type Outcome string

const (
	OutcomeUnknown Outcome = "unknown"
	OutcomeThreat  Outcome = "threat"
	OutcomeSafe    Outcome = "safe"
)

// Record is an immutable decision record. IDs are unique and strictly
// increasing within a process lifetime; only the owning entry's Outcome
// changes after creation.
type Record struct {
	ID          int64              `json:"id"`
	Features    features.Vector    `json:"inputFeatures"`
	Probability float64            `json:"predictedProbability"`
	Action      Action             `json:"action"`
	Reasoning   string             `json:"reasoning"`
	Confidence  float64            `json:"confidence"`
	Breakdown   map[string]float64 `json:"breakdown"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// Entry pairs an event with its decision and eventual outcome.
type Entry struct {
	Event    features.TransactionEvent `json:"event"`
	Decision Record                    `json:"decision"`
	Outcome  Outcome                   `json:"outcome"`
}

// Memory is the bounded FIFO store.
type Memory struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
}

// NewMemory creates a memory bounded at capacity. Non-positive values
// fall back to DefaultCapacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

// Append records an entry, evicting the oldest when over capacity.
func (m *Memory) Append(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.Outcome == "" {
		e.Outcome = OutcomeUnknown
	}
	m.entries = append(m.entries, e)
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = m.entries[over:]
	}
}

// Len returns the current number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Capacity returns the configured bound.
func (m *Memory) Capacity() int { return m.capacity }

// Snapshot returns a copy of all entries in insertion order.
func (m *Memory) Snapshot() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// FindSimilar returns entries whose similarity to the event meets the
// threshold, in insertion order.
func (m *Memory) FindSimilar(e *features.TransactionEvent, threshold float64) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, entry := range m.entries {
		if Similarity(e, &entry.Event) >= threshold {
			out = append(out, entry)
		}
	}
	return out
}

// MaxSimilarity returns the highest similarity between the event and any
// stored entry, along with the entry count at lookup time.
func (m *Memory) MaxSimilarity(e *features.TransactionEvent) (float64, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	best := 0.0
	for _, entry := range m.entries {
		if s := Similarity(e, &entry.Event); s > best {
			best = s
		}
	}
	return best, len(m.entries)
}

// SetOutcome marks the entry holding the decision id with the ground
// truth outcome. Returns the decision record and false when the id is
// not (or no longer) in memory.
func (m *Memory) SetOutcome(decisionID int64, outcome Outcome) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].Decision.ID == decisionID {
			m.entries[i].Outcome = outcome
			return m.entries[i].Decision, true
		}
	}
	return Record{}, false
}

// Similarity is cosine similarity over the (amount, contractInteractions,
// executionTimeSeconds) tuple. Zero when either vector has zero norm.
func Similarity(a, b *features.TransactionEvent) float64 {
	ax, ay, az := a.Amount, float64(a.ContractInteractions), a.ExecutionTimeSeconds
	bx, by, bz := b.Amount, float64(b.ContractInteractions), b.ExecutionTimeSeconds

	dot := ax*bx + ay*by + az*bz
	na := math.Sqrt(ax*ax + ay*ay + az*az)
	nb := math.Sqrt(bx*bx + by*by + bz*bz)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}
