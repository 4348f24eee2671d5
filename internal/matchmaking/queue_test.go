package matchmaking

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type matchRecorder struct {
	mu    sync.Mutex
	pairs [][2]Entry
}

func (r *matchRecorder) record(a, b Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = append(r.pairs, [2]Entry{a, b})
}

func (r *matchRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pairs)
}

func newTestQueue(rec *matchRecorder) *Queue {
	return NewQueue(Config{
		BaseTolerance: 200,
		Step:          100,
		Window:        10 * time.Second,
	}, rec.record, zap.NewNop())
}

func entry(connID, userID string, ratingValue int) Entry {
	return Entry{ConnID: connID, UserID: userID, DisplayName: userID, Rating: ratingValue}
}

func TestEnqueueSingleNeverMatches(t *testing.T) {
	rec := &matchRecorder{}
	q := newTestQueue(rec)

	pos := q.Enqueue(entry("c1", "alice", 1000))
	if pos != 1 {
		t.Fatalf("expected position 1, got %d", pos)
	}
	if rec.count() != 0 {
		t.Fatalf("single entry must not match, got %d pairs", rec.count())
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 waiting entry, got %d", q.Len())
	}
}

func TestEnqueueImmediateMatchWithinTolerance(t *testing.T) {
	rec := &matchRecorder{}
	q := newTestQueue(rec)

	q.Enqueue(entry("c1", "alice", 1000))
	pos := q.Enqueue(entry("c2", "bob", 1040))
	if pos != 0 {
		t.Fatalf("matched enqueue should return 0, got %d", pos)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 pair, got %d", rec.count())
	}
	if q.Len() != 0 {
		t.Fatalf("both entries should leave the queue, got %d", q.Len())
	}

	pair := rec.pairs[0]
	if pair[0].UserID != "alice" || pair[1].UserID != "bob" {
		t.Errorf("unexpected pair: %s vs %s", pair[0].UserID, pair[1].UserID)
	}
}

func TestEnqueueGapBeyondToleranceWaits(t *testing.T) {
	rec := &matchRecorder{}
	q := newTestQueue(rec)

	q.Enqueue(entry("c1", "alice", 1000))
	pos := q.Enqueue(entry("c2", "bob", 1201))
	if pos != 2 {
		t.Fatalf("out-of-tolerance entry should wait at position 2, got %d", pos)
	}
	if rec.count() != 0 {
		t.Fatalf("gap of 201 must not match at base tolerance, got %d pairs", rec.count())
	}
}

func TestEnqueueFirstFitInQueueOrder(t *testing.T) {
	rec := &matchRecorder{}
	q := newTestQueue(rec)

	q.Enqueue(entry("c1", "alice", 1000))
	q.Enqueue(entry("c2", "bob", 1400))
	// carol is within tolerance of alice only; first-fit picks the earliest.
	q.Enqueue(entry("c3", "carol", 1150))

	if rec.count() != 1 {
		t.Fatalf("expected 1 pair, got %d", rec.count())
	}
	if rec.pairs[0][0].UserID != "alice" {
		t.Errorf("first-fit should pick the earliest candidate, got %s", rec.pairs[0][0].UserID)
	}
	if q.Position("c2") != 1 {
		t.Errorf("bob should remain at position 1, got %d", q.Position("c2"))
	}
}

func TestReEnqueueReplacesEntry(t *testing.T) {
	rec := &matchRecorder{}
	q := newTestQueue(rec)

	q.Enqueue(entry("c1", "alice", 1000))
	pos := q.Enqueue(entry("c1", "alice", 1600))
	if pos != 1 {
		t.Fatalf("replacement should keep a single entry at position 1, got %d", pos)
	}
	if q.Len() != 1 {
		t.Fatalf("re-enqueue must not duplicate the connection, got %d entries", q.Len())
	}

	// The stale 1000 rating is gone: a 1040 peer no longer matches.
	pos = q.Enqueue(entry("c2", "bob", 1040))
	if pos != 2 || rec.count() != 0 {
		t.Fatalf("stale rating should not match: pos %d, pairs %d", pos, rec.count())
	}
}

func TestDequeue(t *testing.T) {
	rec := &matchRecorder{}
	q := newTestQueue(rec)

	q.Enqueue(entry("c1", "alice", 1000))
	if !q.Dequeue("c1") {
		t.Fatal("Dequeue should report removal")
	}
	if q.Dequeue("c1") {
		t.Fatal("second Dequeue should be a no-op")
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
}

func TestSweepWidensTolerance(t *testing.T) {
	rec := &matchRecorder{}
	q := newTestQueue(rec)

	base := time.Now()
	now := base
	q.now = func() time.Time { return now }

	q.Enqueue(entry("c1", "alice", 1000))
	q.Enqueue(entry("c2", "bob", 1350))

	if matched := q.Sweep(); matched != 0 {
		t.Fatalf("gap of 350 must not match at base tolerance, got %d pairs", matched)
	}

	// After 20s the tolerance is 200 + 2*100 = 400.
	now = base.Add(20 * time.Second)
	if matched := q.Sweep(); matched != 1 {
		t.Fatalf("widened tolerance should match the pair, got %d", matched)
	}
	if q.Len() != 0 {
		t.Fatalf("matched entries should leave the queue, got %d", q.Len())
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 recorded pair, got %d", rec.count())
	}
}

func TestSweepPairsDisjoint(t *testing.T) {
	rec := &matchRecorder{}
	q := newTestQueue(rec)

	base := time.Now()
	now := base
	q.now = func() time.Time { return now }

	ratings := []int{1000, 2000, 1350, 2350}
	for i, r := range ratings {
		q.Enqueue(entry(string(rune('a'+i)), string(rune('a'+i)), r))
	}

	if matched := q.Sweep(); matched != 0 {
		t.Fatalf("no pair is within base tolerance, got %d", matched)
	}

	now = base.Add(20 * time.Second)
	if matched := q.Sweep(); matched != 2 {
		t.Fatalf("expected 2 disjoint pairs, got %d", matched)
	}
	if q.Len() != 0 {
		t.Fatalf("all entries should be consumed, got %d", q.Len())
	}

	seen := make(map[string]bool)
	for _, pair := range rec.pairs {
		for _, e := range pair {
			if seen[e.ConnID] {
				t.Fatalf("connection %s matched twice", e.ConnID)
			}
			seen[e.ConnID] = true
		}
	}
}

func TestSweepUsesLongestWait(t *testing.T) {
	rec := &matchRecorder{}
	q := newTestQueue(rec)

	base := time.Now()
	now := base
	q.now = func() time.Time { return now }

	q.Enqueue(entry("c1", "alice", 1000))

	now = base.Add(5 * time.Second)
	q.Enqueue(entry("c2", "bob", 1450))
	if rec.count() != 0 {
		t.Fatalf("gap of 450 should not match on enqueue, got %d pairs", rec.count())
	}

	// At t=33s alice has waited 33s (tolerance 500) while bob has waited only
	// 28s (tolerance 400). The pair matches only if the longer wait counts.
	now = base.Add(33 * time.Second)
	if matched := q.Sweep(); matched != 1 {
		t.Fatalf("sweep should use the longer wait of the pair, got %d", matched)
	}
}
