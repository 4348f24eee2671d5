package rating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"go.uber.org/zap"
)

const (
	KFactor        = 32
	KFactorAbandon = 48 // leaving early costs more than a fair loss
	InitialRating  = 1000
	RatingFloor    = 100
)

// ErrAlreadyApplied guards the once-per-match invariant at the storage level.
var ErrAlreadyApplied = errors.New("match result already applied")

// Store is the durable home of rating records. The engine is its only writer.
type Store interface {
	Get(ctx context.Context, userID string) (*model.RatingRecord, error)
	Save(ctx context.Context, record *model.RatingRecord) error
	MarkApplied(ctx context.Context, matchID string) (bool, error)
}

// MatchResult is everything the engine needs to settle one finished duel.
type MatchResult struct {
	MatchID      string
	WinnerUserID string // empty means draw
	Abandoned    bool   // loser left early; use the higher K-factor
	UserA        string
	UserB        string
}

// Change is the per-user outcome of a rating update.
type Change struct {
	UserID    string
	Before    int
	After     int
	Delta     int
	Result    model.MatchResultKind
}

// ExpectedScore is the standard ELO expectation for A against B.
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1 / (1 + math.Pow(10, float64(ratingB-ratingA)/400))
}

// NextRating applies one ELO step and clamps to the rating floor.
func NextRating(current int, expected, actual float64, k int) int {
	next := int(math.Round(float64(current) + float64(k)*(actual-expected)))
	if next < RatingFloor {
		next = RatingFloor
	}
	return next
}

// Compute is the pure part of the engine: given both ratings and the outcome
// it returns the new ratings. Replaying the same inputs yields the same
// result.
func Compute(ratingA, ratingB int, winner int, abandoned bool) (int, int) {
	k := KFactor
	if abandoned {
		k = KFactorAbandon
	}

	var actualA, actualB float64
	switch winner {
	case 0: // A wins
		actualA, actualB = 1, 0
	case 1: // B wins
		actualA, actualB = 0, 1
	default: // draw
		actualA, actualB = 0.5, 0.5
	}

	newA := NextRating(ratingA, ExpectedScore(ratingA, ratingB), actualA, k)
	newB := NextRating(ratingB, ExpectedScore(ratingB, ratingA), actualB, k)
	return newA, newB
}

// Engine settles duel outcomes into the rating store.
type Engine struct {
	store Store
	log   *zap.Logger
}

func NewEngine(store Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, log: logger}
}

// ApplyMatch updates both participants' records exactly once for matchID.
func (e *Engine) ApplyMatch(ctx context.Context, res MatchResult) (map[string]Change, error) {
	if res.UserA == "" || res.UserB == "" {
		return nil, fmt.Errorf("match %s: both participants required", res.MatchID)
	}

	fresh, err := e.store.MarkApplied(ctx, res.MatchID)
	if err != nil {
		return nil, fmt.Errorf("mark applied: %w", err)
	}
	if !fresh {
		return nil, ErrAlreadyApplied
	}

	recordA, err := e.loadOrInit(ctx, res.UserA)
	if err != nil {
		return nil, err
	}
	recordB, err := e.loadOrInit(ctx, res.UserB)
	if err != nil {
		return nil, err
	}

	winner := -1
	switch res.WinnerUserID {
	case res.UserA:
		winner = 0
	case res.UserB:
		winner = 1
	}

	newA, newB := Compute(recordA.CurrentRating, recordB.CurrentRating, winner, res.Abandoned)
	changes := map[string]Change{
		res.UserA: e.settle(recordA, newA, resultFor(winner, 0), res.MatchID),
		res.UserB: e.settle(recordB, newB, resultFor(winner, 1), res.MatchID),
	}

	if err := e.store.Save(ctx, recordA); err != nil {
		return nil, fmt.Errorf("save rating for %s: %w", res.UserA, err)
	}
	if err := e.store.Save(ctx, recordB); err != nil {
		return nil, fmt.Errorf("save rating for %s: %w", res.UserB, err)
	}

	e.log.Info("ratings updated",
		zap.String("matchId", res.MatchID),
		zap.String("winner", res.WinnerUserID),
		zap.Int("deltaA", changes[res.UserA].Delta),
		zap.Int("deltaB", changes[res.UserB].Delta))

	return changes, nil
}

func (e *Engine) loadOrInit(ctx context.Context, userID string) (*model.RatingRecord, error) {
	record, err := e.store.Get(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrNoRecord) {
		return nil, fmt.Errorf("load rating for %s: %w", userID, err)
	}
	return &model.RatingRecord{
		UserID:        userID,
		CurrentRating: InitialRating,
		PeakRating:    InitialRating,
		History: []model.RatingHistoryEntry{
			{Rating: InitialRating, MatchID: "initial", Timestamp: time.Now()},
		},
	}, nil
}

// settle mutates one record in-place: rating, peak, counters and history move
// together so a partially updated record is never persisted.
func (e *Engine) settle(record *model.RatingRecord, newRating int, result model.MatchResultKind, matchID string) Change {
	change := Change{
		UserID: record.UserID,
		Before: record.CurrentRating,
		After:  newRating,
		Delta:  newRating - record.CurrentRating,
		Result: result,
	}

	record.CurrentRating = newRating
	if newRating > record.PeakRating {
		record.PeakRating = newRating
	}
	record.MatchesPlayed++
	record.LastMatchAt = time.Now()
	switch result {
	case model.ResultWin:
		record.Wins++
	case model.ResultLoss:
		record.Losses++
	default:
		record.Draws++
	}
	record.History = append(record.History, model.RatingHistoryEntry{
		Rating:    newRating,
		MatchID:   matchID,
		Timestamp: time.Now(),
	})

	return change
}

func resultFor(winner, side int) model.MatchResultKind {
	switch {
	case winner < 0:
		return model.ResultDraw
	case winner == side:
		return model.ResultWin
	default:
		return model.ResultLoss
	}
}
