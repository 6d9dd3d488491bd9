package patterns

import (
	"math"
	"sync"
	"testing"

	"github.com/mbd888/sentinel/internal/features"
)

func entryWithID(id int64, amount float64) Entry {
	return Entry{
		Event:    features.TransactionEvent{Amount: amount, ContractInteractions: 1, ExecutionTimeSeconds: 1},
		Decision: Record{ID: id, Action: ActionAllow},
	}
}

func TestFIFOEviction(t *testing.T) {
	m := NewMemory(5)

	// Insert capacity + 3 entries; only the most recent 5 survive.
	for i := int64(1); i <= 8; i++ {
		m.Append(entryWithID(i, float64(i)))
	}

	if m.Len() != 5 {
		t.Fatalf("len = %d, want 5", m.Len())
	}

	snap := m.Snapshot()
	for i, e := range snap {
		want := int64(i + 4) // IDs 4..8 remain, oldest first
		if e.Decision.ID != want {
			t.Errorf("entry %d has id %d, want %d", i, e.Decision.ID, want)
		}
	}
}

func TestNeverExceedsCapacity(t *testing.T) {
	m := NewMemory(10)
	for i := int64(0); i < 100; i++ {
		m.Append(entryWithID(i, 1))
		if m.Len() > 10 {
			t.Fatalf("memory exceeded capacity: %d", m.Len())
		}
	}
}

func TestDefaultCapacity(t *testing.T) {
	m := NewMemory(0)
	if m.Capacity() != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", m.Capacity(), DefaultCapacity)
	}
}

func TestSimilarityIdenticalVectors(t *testing.T) {
	a := &features.TransactionEvent{Amount: 1000, ContractInteractions: 5, ExecutionTimeSeconds: 30}
	b := &features.TransactionEvent{Amount: 2000, ContractInteractions: 10, ExecutionTimeSeconds: 60}

	// b is a scalar multiple of a: cosine similarity is exactly 1.
	if s := Similarity(a, b); math.Abs(s-1) > 1e-9 {
		t.Errorf("similarity = %f, want 1", s)
	}
}

func TestSimilarityZeroNorm(t *testing.T) {
	zero := &features.TransactionEvent{}
	other := &features.TransactionEvent{Amount: 100, ContractInteractions: 2, ExecutionTimeSeconds: 10}

	if s := Similarity(zero, other); s != 0 {
		t.Errorf("similarity with zero vector = %f, want 0", s)
	}
	if s := Similarity(zero, zero); s != 0 {
		t.Errorf("similarity of two zero vectors = %f, want 0", s)
	}
}

func TestSimilarityOrthogonal(t *testing.T) {
	a := &features.TransactionEvent{Amount: 100}
	b := &features.TransactionEvent{ContractInteractions: 7}

	if s := Similarity(a, b); s != 0 {
		t.Errorf("similarity of orthogonal vectors = %f, want 0", s)
	}
}

func TestFindSimilar(t *testing.T) {
	m := NewMemory(100)
	m.Append(Entry{
		Event:    features.TransactionEvent{Amount: 1000, ContractInteractions: 5, ExecutionTimeSeconds: 30},
		Decision: Record{ID: 1},
	})
	m.Append(Entry{
		Event:    features.TransactionEvent{Amount: 5, ContractInteractions: 50, ExecutionTimeSeconds: 0.1},
		Decision: Record{ID: 2},
	})

	probe := &features.TransactionEvent{Amount: 1100, ContractInteractions: 5, ExecutionTimeSeconds: 33}

	got := m.FindSimilar(probe, 0.95)
	if len(got) != 1 || got[0].Decision.ID != 1 {
		t.Fatalf("FindSimilar returned %d entries, want exactly entry 1", len(got))
	}
}

func TestMaxSimilarity(t *testing.T) {
	m := NewMemory(100)
	best, n := m.MaxSimilarity(&features.TransactionEvent{Amount: 1})
	if best != 0 || n != 0 {
		t.Errorf("empty memory: best=%f n=%d, want 0, 0", best, n)
	}

	m.Append(entryWithID(1, 100))
	best, n = m.MaxSimilarity(&features.TransactionEvent{Amount: 100, ContractInteractions: 1, ExecutionTimeSeconds: 1})
	if best < 0.99 || n != 1 {
		t.Errorf("best=%f n=%d, want ~1, 1", best, n)
	}
}

func TestSetOutcome(t *testing.T) {
	m := NewMemory(10)
	m.Append(entryWithID(7, 1))

	rec, ok := m.SetOutcome(7, OutcomeThreat)
	if !ok {
		t.Fatal("SetOutcome returned false for known id")
	}
	if rec.ID != 7 {
		t.Errorf("record id = %d, want 7", rec.ID)
	}
	if m.Snapshot()[0].Outcome != OutcomeThreat {
		t.Error("outcome not recorded on entry")
	}

	if _, ok := m.SetOutcome(999999, OutcomeThreat); ok {
		t.Error("SetOutcome returned true for unknown id")
	}
}

func TestAppendDefaultsOutcomeUnknown(t *testing.T) {
	m := NewMemory(10)
	m.Append(Entry{Decision: Record{ID: 1}})
	if m.Snapshot()[0].Outcome != OutcomeUnknown {
		t.Error("appended entry should default to unknown outcome")
	}
}

func TestConcurrentAppends(t *testing.T) {
	m := NewMemory(50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Append(entryWithID(int64(g*1000+i), 1))
			}
		}(g)
	}
	wg.Wait()

	if m.Len() != 50 {
		t.Errorf("len = %d, want capacity 50 after concurrent appends", m.Len())
	}
}
