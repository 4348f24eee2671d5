package model

import (
	"time"
)

const (
	MaxConcurrentDuels   = 500
	WebsocketReadTimeout = 60 * time.Second
	StaleSessionTimeout  = 5 * time.Minute
)

type DuelStatus string

const (
	StatusStarting       DuelStatus = "STARTING"
	StatusQuestionReveal DuelStatus = "QUESTION_REVEAL"
	StatusActive         DuelStatus = "ACTIVE"
	StatusFinished       DuelStatus = "FINISHED"
)

type FinishReason string

const (
	ReasonSolved               FinishReason = "solved"
	ReasonOpponentDisconnected FinishReason = "opponent_disconnected"
	ReasonSubmissionsExhausted FinishReason = "submissions_exhausted"
	ReasonTimeExpired          FinishReason = "time_expired"
)

type MatchMode string

const (
	ModeSprint1Min   MatchMode = "SPRINT_1MIN"
	ModeBlitz2Min    MatchMode = "BLITZ_2MIN"
	ModeRapid8Min    MatchMode = "RAPID_8MIN"
	ModeClassic12Min MatchMode = "CLASSIC_12MIN"
)

var modeDurations = map[MatchMode]time.Duration{
	ModeSprint1Min:   60 * time.Second,
	ModeBlitz2Min:    120 * time.Second,
	ModeRapid8Min:    480 * time.Second,
	ModeClassic12Min: 720 * time.Second,
}

// Duration returns the active-phase timer for the mode, falling back to
// SPRINT_1MIN for unknown values.
func (m MatchMode) Duration() time.Duration {
	if d, ok := modeDurations[m]; ok {
		return d
	}
	return modeDurations[ModeSprint1Min]
}

func ParseMatchMode(s string) MatchMode {
	mode := MatchMode(s)
	if _, ok := modeDurations[mode]; ok {
		return mode
	}
	return ModeSprint1Min
}

// Player is the ephemeral per-connection view of a duel participant. It is
// owned by whichever queue entry or session currently references it.
type Player struct {
	ConnID      string `json:"connId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Rating      int    `json:"rating"`
}

// PublicProfile is what the opponent is allowed to see.
type PublicProfile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Rating      int    `json:"rating"`
}

func (p Player) Public() PublicProfile {
	return PublicProfile{UserID: p.UserID, DisplayName: p.DisplayName, Rating: p.Rating}
}

// SubmissionOutcome is immutable once recorded; one per accepted submission.
type SubmissionOutcome struct {
	ConnID         string    `json:"connId"`
	AllTestsPassed bool      `json:"allTestsPassed"`
	TimedOut       bool      `json:"timedOut"`
	PerTestResults []string  `json:"perTestResults"`
	SubmittedAt    time.Time `json:"submittedAt"`
}
