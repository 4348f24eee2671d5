package rating

import (
	"context"
	"errors"
	"testing"

	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"go.uber.org/zap"
)

type memStore struct {
	records map[string]*model.RatingRecord
	applied map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[string]*model.RatingRecord),
		applied: make(map[string]bool),
	}
}

func (m *memStore) Get(_ context.Context, userID string) (*model.RatingRecord, error) {
	record, ok := m.records[userID]
	if !ok {
		return nil, ErrNoRecord
	}
	copied := *record
	return &copied, nil
}

func (m *memStore) Save(_ context.Context, record *model.RatingRecord) error {
	copied := *record
	m.records[record.UserID] = &copied
	return nil
}

func (m *memStore) MarkApplied(_ context.Context, matchID string) (bool, error) {
	if m.applied[matchID] {
		return false, nil
	}
	m.applied[matchID] = true
	return true, nil
}

func TestExpectedScoreSymmetry(t *testing.T) {
	a := ExpectedScore(1200, 1000)
	b := ExpectedScore(1000, 1200)
	if sum := a + b; sum < 0.999 || sum > 1.001 {
		t.Fatalf("expected scores should sum to 1, got %f", sum)
	}
	if a <= 0.5 {
		t.Fatalf("higher-rated player should be favored, got %f", a)
	}
}

func TestComputeEqualRatingsWin(t *testing.T) {
	newA, newB := Compute(1000, 1000, 0, false)
	if newA != 1016 {
		t.Errorf("winner at equal ratings should gain K/2, got %d", newA)
	}
	if newB != 984 {
		t.Errorf("loser at equal ratings should lose K/2, got %d", newB)
	}
}

func TestComputeDraw(t *testing.T) {
	newA, newB := Compute(1000, 1000, -1, false)
	if newA != 1000 || newB != 1000 {
		t.Errorf("draw between equals should not move ratings, got %d and %d", newA, newB)
	}

	// An upset draw still moves points toward the underdog.
	newA, newB = Compute(1400, 1000, -1, false)
	if newA >= 1400 {
		t.Errorf("favorite should lose points on a draw, got %d", newA)
	}
	if newB <= 1000 {
		t.Errorf("underdog should gain points on a draw, got %d", newB)
	}
}

func TestComputeAbandonUsesHigherK(t *testing.T) {
	_, fairLoss := Compute(1000, 1000, 0, false)
	_, abandonLoss := Compute(1000, 1000, 0, true)
	if abandonLoss >= fairLoss {
		t.Fatalf("abandoning should cost more than a fair loss: fair %d, abandon %d", fairLoss, abandonLoss)
	}
}

func TestNextRatingFloor(t *testing.T) {
	next := NextRating(RatingFloor+5, 0.9, 0, KFactorAbandon)
	if next != RatingFloor {
		t.Fatalf("rating should clamp at the floor, got %d", next)
	}
}

func TestComputeDeterministic(t *testing.T) {
	a1, b1 := Compute(1234, 1187, 1, false)
	a2, b2 := Compute(1234, 1187, 1, false)
	if a1 != a2 || b1 != b2 {
		t.Fatalf("same inputs must produce same ratings: (%d,%d) vs (%d,%d)", a1, b1, a2, b2)
	}
}

func TestApplyMatchInitializesNewPlayers(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, zap.NewNop())

	changes, err := engine.ApplyMatch(context.Background(), MatchResult{
		MatchID:      "m1",
		WinnerUserID: "alice",
		UserA:        "alice",
		UserB:        "bob",
	})
	if err != nil {
		t.Fatalf("ApplyMatch failed: %v", err)
	}

	if changes["alice"].Before != InitialRating {
		t.Errorf("new player should start at %d, got %d", InitialRating, changes["alice"].Before)
	}
	if changes["alice"].Delta <= 0 {
		t.Errorf("winner delta should be positive, got %d", changes["alice"].Delta)
	}
	if changes["bob"].Delta >= 0 {
		t.Errorf("loser delta should be negative, got %d", changes["bob"].Delta)
	}

	alice := store.records["alice"]
	if alice.Wins != 1 || alice.Losses != 0 || alice.MatchesPlayed != 1 {
		t.Errorf("winner counters wrong: %+v", alice)
	}
	if alice.PeakRating != alice.CurrentRating {
		t.Errorf("peak should track a new high, got peak %d current %d", alice.PeakRating, alice.CurrentRating)
	}
	// initial entry plus the match entry
	if len(alice.History) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(alice.History))
	}

	bob := store.records["bob"]
	if bob.Losses != 1 || bob.PeakRating != InitialRating {
		t.Errorf("loser record wrong: %+v", bob)
	}
}

func TestApplyMatchExactlyOnce(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, zap.NewNop())

	result := MatchResult{MatchID: "m1", WinnerUserID: "alice", UserA: "alice", UserB: "bob"}
	if _, err := engine.ApplyMatch(context.Background(), result); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	first := store.records["alice"].CurrentRating

	_, err := engine.ApplyMatch(context.Background(), result)
	if !errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("second apply should return ErrAlreadyApplied, got %v", err)
	}
	if store.records["alice"].CurrentRating != first {
		t.Fatalf("replay must not move ratings: %d vs %d", store.records["alice"].CurrentRating, first)
	}
}

func TestApplyMatchDraw(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, zap.NewNop())

	changes, err := engine.ApplyMatch(context.Background(), MatchResult{
		MatchID: "m1",
		UserA:   "alice",
		UserB:   "bob",
	})
	if err != nil {
		t.Fatalf("ApplyMatch failed: %v", err)
	}

	for _, userID := range []string{"alice", "bob"} {
		if changes[userID].Result != model.ResultDraw {
			t.Errorf("%s should record a draw, got %s", userID, changes[userID].Result)
		}
		if store.records[userID].Draws != 1 {
			t.Errorf("%s draw counter should be 1, got %d", userID, store.records[userID].Draws)
		}
	}
}
