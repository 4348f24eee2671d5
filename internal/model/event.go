package model

type EventType string

const (
	EventQueueStatus        EventType = "QUEUE_STATUS"
	EventMatchFound         EventType = "MATCH_FOUND"
	EventSessionStateUpdate EventType = "SESSION_STATE_UPDATE"
	EventSubmissionResult   EventType = "SUBMISSION_RESULT"
	EventSessionFinished    EventType = "SESSION_FINISHED"
	EventError              EventType = "ERROR"
)

type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

type QueueStatusPayload struct {
	Position   int `json:"position"`
	RatingBand int `json:"ratingBand"`
}

type MatchFoundPayload struct {
	SessionID  string             `json:"sessionId"`
	Opponent   PublicProfile      `json:"opponent"`
	Difficulty QuestionDifficulty `json:"questionDifficulty"`
	Mode       MatchMode          `json:"mode"`
	Token      string             `json:"token"`
}

type SessionStateUpdatePayload struct {
	SessionID string         `json:"sessionId"`
	Status    DuelStatus     `json:"status"`
	TimeLeft  int64          `json:"timeLeft"` // seconds remaining in the current phase
	Question  map[string]any `json:"question,omitempty"`
}

type SubmissionResultPayload struct {
	SessionID    string `json:"sessionId"`
	Accepted     bool   `json:"accepted"`
	Passed       bool   `json:"passed"`
	TimedOut     bool   `json:"timedOut"`
	Detail       string `json:"detail"`
	AttemptsLeft int    `json:"attemptsLeft"`
}

type SessionFinishedPayload struct {
	SessionID    string       `json:"sessionId"`
	WinnerUserID string       `json:"winnerUserId,omitempty"` // empty means draw
	Draw         bool         `json:"draw"`
	Reason       FinishReason `json:"reason"`
	RatingChange int          `json:"ratingChange"`
	NewRating    int          `json:"newRating"`
}
