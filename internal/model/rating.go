package model

import "time"

// RatingHistoryEntry is one append-only point in a user's rating history.
type RatingHistoryEntry struct {
	Rating    int       `json:"rating"`
	MatchID   string    `json:"matchId"`
	Timestamp time.Time `json:"timestamp"`
}

// RatingRecord is the durable per-user rating state. Mutated only by the
// rating engine, once per completed match.
type RatingRecord struct {
	UserID        string               `json:"userId"`
	CurrentRating int                  `json:"currentRating"`
	PeakRating    int                  `json:"peakRating"`
	MatchesPlayed int                  `json:"matchesPlayed"`
	Wins          int                  `json:"wins"`
	Losses        int                  `json:"losses"`
	Draws         int                  `json:"draws"`
	LastMatchAt   time.Time            `json:"lastMatchAt"`
	History       []RatingHistoryEntry `json:"history"`
}

type MatchResultKind string

const (
	ResultWin  MatchResultKind = "win"
	ResultLoss MatchResultKind = "loss"
	ResultDraw MatchResultKind = "draw"
)

// ParticipantResult is one side of a persisted match record.
type ParticipantResult struct {
	UserID       string          `json:"userId"`
	Result       MatchResultKind `json:"result"`
	RatingBefore int             `json:"ratingBefore"`
	RatingAfter  int             `json:"ratingAfter"`
	RatingChange int             `json:"ratingChange"`
}

// MatchRecord is the append-only match history row.
type MatchRecord struct {
	MatchID      string              `gorm:"column:match_id;primaryKey" json:"matchId"`
	Mode         MatchMode           `gorm:"column:mode" json:"mode"`
	QuestionID   int                 `gorm:"column:question_id" json:"questionId"`
	WinnerUserID string              `gorm:"column:winner_user_id" json:"winnerUserId"`
	Reason       FinishReason        `gorm:"column:reason" json:"reason"`
	P1UserID     string              `gorm:"column:p1_user_id;index" json:"-"`
	P2UserID     string              `gorm:"column:p2_user_id;index" json:"-"`
	Participants []ParticipantResult `gorm:"column:participants;type:jsonb;serializer:json" json:"participants"`
	Duration     int64               `gorm:"column:duration" json:"duration"` // seconds
	PlayedAt     time.Time           `gorm:"column:played_at;index" json:"playedAt"`
}

func (MatchRecord) TableName() string { return "match_records" }
