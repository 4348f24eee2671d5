package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/codeclash-dev/DuelWssManagerService/internal/jwt"
	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"github.com/codeclash-dev/DuelWssManagerService/internal/question"
	"go.uber.org/zap"
)

type fakeQuestionStore struct {
	fail        bool
	lastBucket  model.DifficultyBucket
	requestedID int
}

func (f *fakeQuestionStore) RandomID(bucket model.DifficultyBucket) int {
	f.lastBucket = bucket
	return bucket.MinID
}

func (f *fakeQuestionStore) GetByID(_ context.Context, id int) (*model.Question, error) {
	if f.fail {
		return nil, question.ErrNotFound
	}
	f.requestedID = id
	q := testQuestion()
	q.QuestionID = id
	return q, nil
}

func newTestLauncher(store question.Store) (*Launcher, *Registry) {
	registry := NewRegistry(zap.NewNop())
	return &Launcher{
		Registry:  registry,
		Questions: store,
		Jwt:       jwt.NewJWTManager("test-secret"),
		Mode:      model.ModeSprint1Min,
		Cfg: Config{
			CountdownTicks: 3,
			TickInterval:   time.Second,
			RevealTime:     10 * time.Second,
			DuelTime:       time.Minute,
			GraceTime:      10 * time.Second,
			MaxAttempts:    3,
		},
		Deps: Deps{Log: zap.NewNop()},
		Log:  zap.NewNop(),
	}, registry
}

func TestHandleMatchLaunchesSession(t *testing.T) {
	store := &fakeQuestionStore{}
	launcher, registry := newTestLauncher(store)

	connA, connB := &fakeConn{}, &fakeConn{}
	launcher.HandleMatch(
		Seat{ConnID: "cA", UserID: "alice", DisplayName: "alice", Rating: 1000, Conn: connA},
		Seat{ConnID: "cB", UserID: "bob", DisplayName: "bob", Rating: 1040, Conn: connB},
	)

	if registry.Count() != 1 {
		t.Fatalf("expected 1 registered session, got %d", registry.Count())
	}
	// averaged rating 1020 lands in the easy bucket
	if store.lastBucket.Difficulty != model.DifficultyEasy {
		t.Fatalf("expected easy bucket for avg 1020, got %s", store.lastBucket.Difficulty)
	}
	if store.requestedID < store.lastBucket.MinID || store.requestedID > store.lastBucket.MaxID {
		t.Fatalf("question id %d outside bucket [%d, %d]", store.requestedID, store.lastBucket.MinID, store.lastBucket.MaxID)
	}

	for _, c := range []*fakeConn{connA, connB} {
		found := c.eventsOfType(model.EventMatchFound)
		if len(found) != 1 {
			t.Fatalf("expected 1 MATCH_FOUND per player, got %d", len(found))
		}
		payload := found[0].Payload.(model.MatchFoundPayload)
		if payload.SessionID == "" || payload.Token == "" {
			t.Fatalf("incomplete matchFound payload: %+v", payload)
		}
		if payload.Difficulty != model.DifficultyEasy || payload.Mode != model.ModeSprint1Min {
			t.Fatalf("wrong difficulty or mode: %+v", payload)
		}
	}

	// the minted token is scoped to the created session
	payload := connA.eventsOfType(model.EventMatchFound)[0].Payload.(model.MatchFoundPayload)
	claims, err := launcher.Jwt.ValidateToken(payload.Token)
	if err != nil {
		t.Fatalf("token validation failed: %v", err)
	}
	if claims.UserID != "alice" || claims.SessionID != payload.SessionID {
		t.Fatalf("wrong token claims: %+v", claims)
	}

	opponent := payload.Opponent
	if opponent.UserID != "bob" {
		t.Fatalf("alice should see bob as opponent, got %+v", opponent)
	}
}

func TestHandleMatchMasterBucket(t *testing.T) {
	store := &fakeQuestionStore{}
	launcher, _ := newTestLauncher(store)

	launcher.HandleMatch(
		Seat{ConnID: "cA", UserID: "alice", Rating: 1900, Conn: &fakeConn{}},
		Seat{ConnID: "cB", UserID: "bob", Rating: 2100, Conn: &fakeConn{}},
	)

	if store.lastBucket.Difficulty != model.DifficultyMaster {
		t.Fatalf("expected master bucket for avg 2000, got %s", store.lastBucket.Difficulty)
	}
}

func TestHandleMatchQuestionFailureRequeues(t *testing.T) {
	store := &fakeQuestionStore{fail: true}
	launcher, registry := newTestLauncher(store)
	launcher.RequeueDelay = 50 * time.Millisecond

	var mu sync.Mutex
	var requeued []string
	launcher.Requeue = func(seat Seat) {
		mu.Lock()
		defer mu.Unlock()
		requeued = append(requeued, seat.UserID)
	}
	requeuedCount := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(requeued)
	}

	connA, connB := &fakeConn{}, &fakeConn{}
	launcher.HandleMatch(
		Seat{ConnID: "cA", UserID: "alice", Rating: 1000, Conn: connA},
		Seat{ConnID: "cB", UserID: "bob", Rating: 1040, Conn: connB},
	)

	if registry.Count() != 0 {
		t.Fatal("no session should be created when the question fetch fails")
	}
	for _, c := range []*fakeConn{connA, connB} {
		if len(c.eventsOfType(model.EventError)) != 1 {
			t.Fatal("each player should be told the match fell through")
		}
	}

	// the re-enqueue is deferred, never run inside HandleMatch
	if requeuedCount() != 0 {
		t.Fatal("requeue must not happen on the HandleMatch call stack")
	}
	waitFor(t, "deferred requeue", func() bool { return requeuedCount() == 2 })
}
