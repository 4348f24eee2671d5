package matchmaking

import (
	"sync"
	"time"

	"github.com/codeclash-dev/DuelWssManagerService/internal/session"
	"go.uber.org/zap"
)

// Entry is one waiting player. At most one entry exists per connection.
type Entry struct {
	ConnID      string
	UserID      string
	DisplayName string
	Rating      int
	EnqueuedAt  time.Time
	Conn        session.ClientConn
}

// Config holds the tolerance-widening parameters. The accepted rating gap is
// BaseTolerance + floor(wait/Window) * Step.
type Config struct {
	BaseTolerance int
	Step          int
	Window        time.Duration
}

// MatchFunc receives both matched entries after they have been removed from
// the queue. It runs outside the queue's critical section.
type MatchFunc func(a, b Entry)

// Queue is the rating-aware waiting list. Matching is first-fit in queue
// order: deterministic, and it favors low wait over perfect pairing.
type Queue struct {
	mu      sync.Mutex
	entries []*Entry
	cfg     Config
	now     func() time.Time
	onMatch MatchFunc
	log     *zap.Logger
}

func NewQueue(cfg Config, onMatch MatchFunc, logger *zap.Logger) *Queue {
	return &Queue{
		cfg:     cfg,
		now:     time.Now,
		onMatch: onMatch,
		log:     logger,
	}
}

// tolerance widens with how long the candidate has been waiting.
func (q *Queue) tolerance(waited time.Duration) int {
	steps := int(waited / q.cfg.Window)
	return q.cfg.BaseTolerance + steps*q.cfg.Step
}

// Enqueue inserts the entry and attempts an immediate match. Re-enqueueing an
// already-queued connection replaces the previous entry. Returns the queue
// position (1-based) when no match was found, or 0 when matched.
func (q *Queue) Enqueue(e Entry) int {
	e.EnqueuedAt = q.now()

	q.mu.Lock()
	q.removeLocked(e.ConnID)

	for i, candidate := range q.entries {
		gap := e.Rating - candidate.Rating
		if gap < 0 {
			gap = -gap
		}
		if gap <= q.tolerance(q.now().Sub(candidate.EnqueuedAt)) {
			matched := *candidate
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.mu.Unlock()

			q.log.Info("pair matched on enqueue",
				zap.String("userA", matched.UserID),
				zap.String("userB", e.UserID),
				zap.Int("ratingGap", gap))
			q.onMatch(matched, e)
			return 0
		}
	}

	copied := e
	q.entries = append(q.entries, &copied)
	position := len(q.entries)
	q.mu.Unlock()
	return position
}

// Dequeue removes an entry if present; no-op otherwise.
func (q *Queue) Dequeue(connID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(connID)
}

func (q *Queue) removeLocked(connID string) bool {
	for i, e := range q.entries {
		if e.ConnID == connID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Sweep re-scans the queue pairing entries whose widened tolerance now covers
// a waiting peer. Matched pairs are removed inside the critical section so a
// concurrent enqueue cannot double-match them.
func (q *Queue) Sweep() int {
	q.mu.Lock()

	var pairs [][2]Entry
	for i := 0; i < len(q.entries); i++ {
		a := q.entries[i]
		for j := i + 1; j < len(q.entries); j++ {
			b := q.entries[j]
			gap := a.Rating - b.Rating
			if gap < 0 {
				gap = -gap
			}
			waited := q.now().Sub(a.EnqueuedAt)
			if w := q.now().Sub(b.EnqueuedAt); w > waited {
				waited = w
			}
			if gap <= q.tolerance(waited) {
				pairs = append(pairs, [2]Entry{*a, *b})
				q.entries = append(q.entries[:j], q.entries[j+1:]...)
				q.entries = append(q.entries[:i], q.entries[i+1:]...)
				i--
				break
			}
		}
	}
	q.mu.Unlock()

	for _, pair := range pairs {
		q.log.Info("pair matched on sweep",
			zap.String("userA", pair[0].UserID),
			zap.String("userB", pair[1].UserID))
		q.onMatch(pair[0], pair[1])
	}
	return len(pairs)
}

// Len reports how many entries are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Position returns the 1-based queue position for a connection, 0 if absent.
func (q *Queue) Position(connID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.ConnID == connID {
			return i + 1
		}
	}
	return 0
}
