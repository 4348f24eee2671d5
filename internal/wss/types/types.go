package wsstypes

import (
	"github.com/codeclash-dev/DuelWssManagerService/internal/jwt"
	"github.com/codeclash-dev/DuelWssManagerService/internal/matchmaking"
	"github.com/codeclash-dev/DuelWssManagerService/internal/rating"
	"github.com/codeclash-dev/DuelWssManagerService/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State holds the collaborators shared by every websocket handler.
type State struct {
	Queue      *matchmaking.Queue
	Registry   *session.Registry
	Ratings    *rating.RedisStore
	JwtManager *jwt.JWTManager
	Log        *zap.Logger

	BaseTolerance int
}

// WsContext is the per-event handler context.
type WsContext struct {
	ConnID  string
	Conn    *websocket.Conn
	Payload map[string]any
	State   *State
}

type WsMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type JoinQueuePayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Rating      int    `json:"rating"`
}

type JoinSessionPayload struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

type SubmitSolutionPayload struct {
	SessionID  string `json:"sessionId"`
	Token      string `json:"token"`
	Language   string `json:"language"`
	SourceCode string `json:"sourceCode"`
}

// Error taxonomy: the machine-checkable category that tells the client
// whether to retry.
const (
	ErrorTypeInput        = "INPUT_ERROR"
	ErrorTypeNotFound     = "NOT_FOUND"
	ErrorTypeCollaborator = "COLLABORATOR_ERROR"
	ErrorTypeInvalidState = "INVALID_STATE"
)

type ErrorInfo struct {
	ErrorType string `json:"errorType"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   string `json:"details,omitempty"`
}

// Inbound event names.
const (
	PING_SERVER = "PING_SERVER"

	JOIN_QUEUE      = "JOIN_QUEUE"
	LEAVE_QUEUE     = "LEAVE_QUEUE"
	JOIN_SESSION    = "JOIN_SESSION"
	SUBMIT_SOLUTION = "SUBMIT_SOLUTION"
)
