package session

import (
	"context"
	"time"

	"github.com/codeclash-dev/DuelWssManagerService/internal/jwt"
	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"github.com/codeclash-dev/DuelWssManagerService/internal/question"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Seat is one matched queue entry handed to the launcher.
type Seat struct {
	ConnID      string
	UserID      string
	DisplayName string
	Rating      int
	Conn        ClientConn
}

func (s Seat) player() model.Player {
	return model.Player{
		ConnID:      s.ConnID,
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		Rating:      s.Rating,
	}
}

// Launcher turns a matched pair into a registered duel session: difficulty
// selection, question fetch, session creation and the matchFound fan-out.
type Launcher struct {
	Registry  *Registry
	Questions question.Store
	Jwt       *jwt.JWTManager
	Mode      model.MatchMode
	Cfg       Config
	Deps      Deps
	Requeue   func(Seat) // called when match creation fails
	// RequeueDelay spaces out retries for a pair whose match creation
	// failed. Zero means the 2s default.
	RequeueDelay time.Duration
	Log          *zap.Logger
}

// HandleMatch creates the session for a matched pair. On a Question Store
// failure both players are informed and put back in the queue; no session is
// created.
func (l *Launcher) HandleMatch(a, b Seat) {
	avg := (a.Rating + b.Rating) / 2
	bucket := model.BucketForRating(avg)
	questionID := l.Questions.RandomID(bucket)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q, err := l.Questions.GetByID(ctx, questionID)
	if err != nil {
		l.Log.Error("question lookup failed, requeueing pair",
			zap.Int("questionId", questionID),
			zap.Error(err))
		l.requeuePair(a, b, "could not prepare a question, you are back in the queue")
		return
	}

	sessionID := uuid.New().String()
	s := NewDuelSession(sessionID, l.Mode, bucket.Difficulty, q,
		[2]model.Player{a.player(), b.player()},
		[2]ClientConn{a.Conn, b.Conn},
		l.Cfg, l.Deps)

	if err := l.Registry.Create(s); err != nil {
		l.Log.Error("session registration failed", zap.Error(err))
		l.requeuePair(a, b, "no duel slot available right now, you are back in the queue")
		return
	}

	tokenTTL := l.Cfg.DuelTime + l.Cfg.RevealTime + l.Cfg.GraceTime + time.Minute
	l.notify(a, b, sessionID, bucket.Difficulty, tokenTTL)
	l.notify(b, a, sessionID, bucket.Difficulty, tokenTTL)

	l.Log.Info("match launched",
		zap.String("sessionId", sessionID),
		zap.String("difficulty", string(bucket.Difficulty)),
		zap.Int("questionId", questionID),
		zap.Int("ratingA", a.Rating),
		zap.Int("ratingB", b.Rating))
}

// requeuePair informs both players a match fell through and puts them back
// in the queue after a delay. The re-enqueue must not run on the current
// call stack: the pair is still within tolerance of each other, so an
// immediate Enqueue would re-match them and call HandleMatch again while
// the failure persists.
func (l *Launcher) requeuePair(a, b Seat, message string) {
	delay := l.RequeueDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	for _, seat := range []Seat{a, b} {
		if seat.Conn != nil {
			_ = seat.Conn.WriteJSON(model.Event{
				Type: model.EventError,
				Payload: map[string]any{
					"errorType": "COLLABORATOR_ERROR",
					"message":   message,
					"retryable": true,
				},
			})
		}
		if l.Requeue != nil {
			seat := seat
			time.AfterFunc(delay, func() { l.Requeue(seat) })
		}
	}
}

func (l *Launcher) notify(seat, opponent Seat, sessionID string, difficulty model.QuestionDifficulty, tokenTTL time.Duration) {
	if seat.Conn == nil {
		return
	}
	token, err := l.Jwt.GenerateToken(seat.UserID, sessionID, tokenTTL)
	if err != nil {
		l.Log.Error("failed to mint session token",
			zap.String("userId", seat.UserID),
			zap.Error(err))
	}
	_ = seat.Conn.WriteJSON(model.Event{
		Type: model.EventMatchFound,
		Payload: model.MatchFoundPayload{
			SessionID:  sessionID,
			Opponent:   opponent.player().Public(),
			Difficulty: difficulty,
			Mode:       l.Mode,
			Token:      token,
		},
	})
}
