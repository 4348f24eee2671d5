package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/codeclash-dev/DuelWssManagerService/internal/judge"
	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"github.com/codeclash-dev/DuelWssManagerService/internal/rating"
	"go.uber.org/zap"
)

var (
	ErrNotParticipant = errors.New("connection is not a participant of this session")
	ErrUserMismatch   = errors.New("user does not match session roster")
	ErrNotAccepting   = errors.New("session is not accepting submissions in its current state")
	ErrNoAttemptsLeft = errors.New("no submission attempts left")
	ErrAlreadyDecided = errors.New("session already finished")
)

// ClientConn is the outbound side of a participant connection.
// *websocket.Conn satisfies it.
type ClientConn interface {
	WriteJSON(v interface{}) error
}

// RatingUpdater settles a finished duel into the rating store.
type RatingUpdater interface {
	ApplyMatch(ctx context.Context, res rating.MatchResult) (map[string]rating.Change, error)
}

// MatchRecorder appends one match history row per finished duel.
type MatchRecorder interface {
	SaveMatch(ctx context.Context, record *model.MatchRecord) error
}

type Config struct {
	CountdownTicks int
	TickInterval   time.Duration
	RevealTime     time.Duration
	DuelTime       time.Duration
	GraceTime      time.Duration
	MaxAttempts    int
}

// Deps are the collaborators a session calls out to. Tests inject fakes.
type Deps struct {
	Judge     judge.Runner
	Ratings   RatingUpdater
	Recorder  MatchRecorder
	Log       *zap.Logger
	OnDispose func(sessionID string)
}

type participant struct {
	player       model.Player
	conn         ClientConn
	attached     bool
	gone         bool
	attemptsLeft int
}

// DuelSession is the state machine for one 1v1 match. All state mutation
// happens under mu; the winner is set exactly once inside resolveLocked.
type DuelSession struct {
	ID         string
	Mode       model.MatchMode
	Difficulty model.QuestionDifficulty

	mu               sync.Mutex
	status           model.DuelStatus
	question         *model.Question
	participants     map[string]*participant // by connID, exactly two
	order            [2]string               // connIDs in roster order
	winnerConnID     string
	reason           model.FinishReason
	createdAt        time.Time
	startedAt        time.Time
	revealDeadline   time.Time
	deadline         time.Time
	submissionLog    map[string]*model.SubmissionOutcome
	countdownStarted bool

	revealTimer *time.Timer
	duelTimer   *time.Timer
	stopTick    chan struct{}

	cfg  Config
	deps Deps
}

func NewDuelSession(id string, mode model.MatchMode, difficulty model.QuestionDifficulty, q *model.Question, players [2]model.Player, conns [2]ClientConn, cfg Config, deps Deps) *DuelSession {
	s := &DuelSession{
		ID:            id,
		Mode:          mode,
		Difficulty:    difficulty,
		status:        model.StatusStarting,
		question:      q,
		participants:  make(map[string]*participant, 2),
		submissionLog: make(map[string]*model.SubmissionOutcome, 2),
		createdAt:     time.Now(),
		cfg:           cfg,
		deps:          deps,
	}
	for i, p := range players {
		s.order[i] = p.ConnID
		s.participants[p.ConnID] = &participant{
			player:       p,
			conn:         conns[i],
			attemptsLeft: cfg.MaxAttempts,
		}
	}
	return s
}

func (s *DuelSession) Status() model.DuelStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *DuelSession) Winner() (string, model.FinishReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winnerConnID, s.reason
}

func (s *DuelSession) CreatedAt() time.Time { return s.createdAt }

// Players returns the roster in order.
func (s *DuelSession) Players() [2]model.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return [2]model.Player{
		s.participants[s.order[0]].player,
		s.participants[s.order[1]].player,
	}
}

// HasAttached reports whether any participant ever attached; the registry's
// stale sweep uses it to drop sessions nobody joined.
func (s *DuelSession) HasAttached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.attached {
			return true
		}
	}
	return false
}

// Attach binds a participant's realtime connection to the session channel.
// When the second participant attaches the pre-duel countdown starts.
func (s *DuelSession) Attach(connID, userID string, conn ClientConn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[connID]
	if !ok {
		return ErrNotParticipant
	}
	if p.player.UserID != userID {
		return ErrUserMismatch
	}

	p.conn = conn
	p.attached = true
	p.gone = false

	// state snapshot for the joiner
	snapshot := model.SessionStateUpdatePayload{
		SessionID: s.ID,
		Status:    s.status,
		TimeLeft:  s.remainingLocked(),
	}
	if s.status == model.StatusQuestionReveal || s.status == model.StatusActive {
		snapshot.Question = s.question.Public()
	}
	s.sendTo(p, model.Event{Type: model.EventSessionStateUpdate, Payload: snapshot})

	if s.status == model.StatusStarting && !s.countdownStarted && s.bothAttachedLocked() {
		s.countdownStarted = true
		go s.runCountdown()
	}
	return nil
}

func (s *DuelSession) bothAttachedLocked() bool {
	for _, p := range s.participants {
		if !p.attached || p.gone {
			return false
		}
	}
	return true
}

// runCountdown broadcasts the pre-duel ticks, then moves to QUESTION_REVEAL.
func (s *DuelSession) runCountdown() {
	for i := s.cfg.CountdownTicks; i > 0; i-- {
		s.mu.Lock()
		if s.status != model.StatusStarting {
			s.mu.Unlock()
			return
		}
		s.broadcastLocked(model.Event{
			Type: model.EventSessionStateUpdate,
			Payload: model.SessionStateUpdatePayload{
				SessionID: s.ID,
				Status:    model.StatusStarting,
				TimeLeft:  int64(i),
			},
		})
		s.mu.Unlock()
		time.Sleep(s.cfg.TickInterval)
	}
	s.reveal()
}

// reveal broadcasts the question payload (without hidden test cases) and arms
// the reveal timer.
func (s *DuelSession) reveal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.StatusStarting {
		return
	}
	s.status = model.StatusQuestionReveal
	s.revealDeadline = time.Now().Add(s.cfg.RevealTime)

	s.broadcastLocked(model.Event{
		Type: model.EventSessionStateUpdate,
		Payload: model.SessionStateUpdatePayload{
			SessionID: s.ID,
			Status:    model.StatusQuestionReveal,
			TimeLeft:  int64(s.cfg.RevealTime.Seconds()),
			Question:  s.question.Public(),
		},
	})

	s.revealTimer = time.AfterFunc(s.cfg.RevealTime, s.activate)
}

// activate opens the session for submissions and arms the duel timer.
func (s *DuelSession) activate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.StatusQuestionReveal {
		return
	}
	s.status = model.StatusActive
	s.startedAt = time.Now()
	s.deadline = s.startedAt.Add(s.cfg.DuelTime)
	s.stopTick = make(chan struct{})

	s.broadcastLocked(model.Event{
		Type: model.EventSessionStateUpdate,
		Payload: model.SessionStateUpdatePayload{
			SessionID: s.ID,
			Status:    model.StatusActive,
			TimeLeft:  int64(s.cfg.DuelTime.Seconds()),
		},
	})

	s.duelTimer = time.AfterFunc(s.cfg.DuelTime, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.resolveLocked("", model.ReasonTimeExpired)
	})

	go s.tickLoop(s.stopTick)
}

// tickLoop broadcasts the remaining active time once per second.
func (s *DuelSession) tickLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.status != model.StatusActive {
				s.mu.Unlock()
				return
			}
			remaining := time.Until(s.deadline)
			if remaining < 0 {
				remaining = 0
			}
			s.broadcastLocked(model.Event{
				Type: model.EventSessionStateUpdate,
				Payload: model.SessionStateUpdatePayload{
					SessionID: s.ID,
					Status:    model.StatusActive,
					TimeLeft:  int64(remaining.Seconds()),
				},
			})
			s.mu.Unlock()
		}
	}
}

// Submit validates and accepts a submission for evaluation. The judge call
// runs asynchronously; results come back over the participant's connection.
func (s *DuelSession) Submit(connID, language, sourceCode string) error {
	s.mu.Lock()

	p, ok := s.participants[connID]
	if !ok {
		s.mu.Unlock()
		return ErrNotParticipant
	}
	if s.status == model.StatusFinished {
		s.mu.Unlock()
		return ErrAlreadyDecided
	}
	if s.status != model.StatusActive {
		s.mu.Unlock()
		return ErrNotAccepting
	}
	if p.attemptsLeft <= 0 {
		s.mu.Unlock()
		return ErrNoAttemptsLeft
	}

	// reserve the attempt before the judge runs; in-flight submissions
	// count against the cap, refunded only if the bridge itself fails
	p.attemptsLeft--

	cases := make([]judge.TestCase, 0, len(s.question.TestCases))
	for _, tc := range s.question.TestCases {
		cases = append(cases, judge.TestCase{
			CaseID:   tc.TestCaseID,
			Stdin:    joinLines(tc.Input),
			Expected: tc.ExpectedOutput,
		})
	}
	duelTime := s.cfg.DuelTime
	s.mu.Unlock()

	go s.evaluate(connID, language, sourceCode, cases, duelTime)
	return nil
}

// evaluate runs the judge bridge outside the session lock and feeds the
// verdict back through recordVerdict.
func (s *DuelSession) evaluate(connID, language, sourceCode string, cases []judge.TestCase, duelTime time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), duelTime+30*time.Second)
	defer cancel()

	result, err := s.deps.Judge.Run(ctx, language, sourceCode, cases)
	if err != nil {
		// bridge failure: inform the submitter, refund the reserved attempt
		s.deps.Log.Warn("judge bridge error",
			zap.String("sessionId", s.ID),
			zap.Error(err))
		s.mu.Lock()
		if p, ok := s.participants[connID]; ok {
			p.attemptsLeft++
			s.sendTo(p, model.Event{
				Type: model.EventSubmissionResult,
				Payload: model.SubmissionResultPayload{
					SessionID:    s.ID,
					Accepted:     false,
					Detail:       "judge unavailable, please retry",
					AttemptsLeft: p.attemptsLeft,
				},
			})
		}
		s.mu.Unlock()
		return
	}

	s.recordVerdict(connID, result)
}

func (s *DuelSession) recordVerdict(connID string, result *judge.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[connID]
	if !ok {
		return
	}

	perTest := make([]string, 0, len(result.Results))
	for _, tr := range result.Results {
		perTest = append(perTest, string(tr.Verdict))
	}
	s.submissionLog[connID] = &model.SubmissionOutcome{
		ConnID:         connID,
		AllTestsPassed: result.Passed,
		TimedOut:       result.TimedOut,
		PerTestResults: perTest,
		SubmittedAt:    time.Now(),
	}

	// late verdicts on a finished session are logged only
	if s.status == model.StatusFinished {
		return
	}

	s.sendTo(p, model.Event{
		Type: model.EventSubmissionResult,
		Payload: model.SubmissionResultPayload{
			SessionID:    s.ID,
			Accepted:     true,
			Passed:       result.Passed,
			TimedOut:     result.TimedOut,
			Detail:       result.Detail,
			AttemptsLeft: p.attemptsLeft,
		},
	})

	if result.Passed {
		s.resolveLocked(connID, model.ReasonSolved)
		return
	}
	if p.attemptsLeft <= 0 {
		s.resolveLocked(s.opponentLocked(connID), model.ReasonSubmissionsExhausted)
	}
}

// Disconnect handles a participant connection loss. While the duel is live
// the remaining participant wins; before anyone attached the session is
// simply disposed.
func (s *DuelSession) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[connID]
	if !ok || s.status == model.StatusFinished {
		return
	}
	p.gone = true

	opponent := s.opponentLocked(connID)
	if op := s.participants[opponent]; op == nil || op.gone || !op.attached {
		// nobody left to win: tear down without an outcome
		s.stopTimersLocked()
		s.status = model.StatusFinished
		if s.deps.OnDispose != nil {
			go s.deps.OnDispose(s.ID)
		}
		return
	}

	s.resolveLocked(opponent, model.ReasonOpponentDisconnected)
}

// SubmissionFor returns the latest recorded outcome for a connection.
func (s *DuelSession) SubmissionFor(connID string) (*model.SubmissionOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.submissionLog[connID]
	return out, ok
}

func (s *DuelSession) opponentLocked(connID string) string {
	if s.order[0] == connID {
		return s.order[1]
	}
	return s.order[0]
}

// resolveLocked is the single winner check-and-set. Every terminal trigger
// (passing submission, disconnect, exhausted attempts, timer expiry) funnels
// through here; the first caller wins and later calls are no-ops.
func (s *DuelSession) resolveLocked(winnerConnID string, reason model.FinishReason) bool {
	if s.status == model.StatusFinished {
		return false
	}

	s.status = model.StatusFinished
	s.winnerConnID = winnerConnID
	s.reason = reason
	s.stopTimersLocked()

	duration := int64(0)
	if !s.startedAt.IsZero() {
		duration = int64(time.Since(s.startedAt).Seconds())
	}

	winnerUserID := ""
	if winnerConnID != "" {
		winnerUserID = s.participants[winnerConnID].player.UserID
	}

	a := s.participants[s.order[0]].player
	b := s.participants[s.order[1]].player

	s.deps.Log.Info("session resolved",
		zap.String("sessionId", s.ID),
		zap.String("winner", winnerUserID),
		zap.String("reason", string(reason)))

	go s.settle(a, b, winnerUserID, reason, duration)
	return true
}

// settle runs the rating update exactly once, persists the match record and
// broadcasts the outcome. Runs outside the lock: the state is already
// FINISHED and immutable.
func (s *DuelSession) settle(a, b model.Player, winnerUserID string, reason model.FinishReason, duration int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	changes, err := s.deps.Ratings.ApplyMatch(ctx, rating.MatchResult{
		MatchID:      s.ID,
		WinnerUserID: winnerUserID,
		Abandoned:    reason == model.ReasonOpponentDisconnected,
		UserA:        a.UserID,
		UserB:        b.UserID,
	})
	if err != nil {
		s.deps.Log.Error("rating update failed",
			zap.String("sessionId", s.ID),
			zap.Error(err))
		changes = map[string]rating.Change{}
	}

	if s.deps.Recorder != nil {
		record := &model.MatchRecord{
			MatchID:      s.ID,
			Mode:         s.Mode,
			QuestionID:   s.question.QuestionID,
			WinnerUserID: winnerUserID,
			Reason:       reason,
			P1UserID:     a.UserID,
			P2UserID:     b.UserID,
			Duration:     duration,
			PlayedAt:     time.Now(),
		}
		for _, userID := range []string{a.UserID, b.UserID} {
			if ch, ok := changes[userID]; ok {
				record.Participants = append(record.Participants, model.ParticipantResult{
					UserID:       userID,
					Result:       ch.Result,
					RatingBefore: ch.Before,
					RatingAfter:  ch.After,
					RatingChange: ch.Delta,
				})
			}
		}
		if err := s.deps.Recorder.SaveMatch(ctx, record); err != nil {
			s.deps.Log.Error("match record write failed",
				zap.String("sessionId", s.ID),
				zap.Error(err))
		}
	}

	s.mu.Lock()
	for _, connID := range s.order {
		p := s.participants[connID]
		payload := model.SessionFinishedPayload{
			SessionID:    s.ID,
			WinnerUserID: winnerUserID,
			Draw:         winnerUserID == "",
			Reason:       reason,
		}
		if ch, ok := changes[p.player.UserID]; ok {
			payload.RatingChange = ch.Delta
			payload.NewRating = ch.After
		}
		s.sendTo(p, model.Event{Type: model.EventSessionFinished, Payload: payload})
	}
	s.mu.Unlock()

	// grace window for late result delivery, then dispose
	if s.deps.OnDispose != nil {
		time.AfterFunc(s.cfg.GraceTime, func() { s.deps.OnDispose(s.ID) })
	}
}

func (s *DuelSession) stopTimersLocked() {
	if s.revealTimer != nil {
		s.revealTimer.Stop()
	}
	if s.duelTimer != nil {
		s.duelTimer.Stop()
	}
	if s.stopTick != nil {
		select {
		case <-s.stopTick:
		default:
			close(s.stopTick)
		}
	}
}

func (s *DuelSession) broadcastLocked(event model.Event) {
	for _, connID := range s.order {
		s.sendTo(s.participants[connID], event)
	}
}

func (s *DuelSession) sendTo(p *participant, event model.Event) {
	if p == nil || p.conn == nil || p.gone {
		return
	}
	if err := p.conn.WriteJSON(event); err != nil {
		s.deps.Log.Debug("write to participant failed",
			zap.String("sessionId", s.ID),
			zap.String("userId", p.player.UserID),
			zap.Error(err))
	}
}

// remainingLocked reports seconds left in the phase that owns a timer.
func (s *DuelSession) remainingLocked() int64 {
	switch s.status {
	case model.StatusQuestionReveal:
		return clampSeconds(time.Until(s.revealDeadline))
	case model.StatusActive:
		return clampSeconds(time.Until(s.deadline))
	default:
		return 0
	}
}

func clampSeconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
