package wsshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/codeclash-dev/DuelWssManagerService/internal/judge"
	"github.com/codeclash-dev/DuelWssManagerService/internal/session"
	"github.com/codeclash-dev/DuelWssManagerService/internal/wss/broadcasts"
	wsstypes "github.com/codeclash-dev/DuelWssManagerService/internal/wss/types"
)

// SubmitSolutionHandler validates a submission locally, then hands it to the
// session for asynchronous judging. Nothing here mutates session state; the
// session itself decides what is valid in its current phase.
func SubmitSolutionHandler(ctx *wsstypes.WsContext) error {
	var payload wsstypes.SubmitSolutionPayload
	raw, err := json.Marshal(ctx.Payload)
	if err == nil {
		err = json.Unmarshal(raw, &payload)
	}
	if err != nil || payload.SessionID == "" || payload.SourceCode == "" || payload.Language == "" {
		return broadcasts.SendError(ctx.Conn, wsstypes.SUBMIT_SOLUTION, wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeInput,
			Code:      http.StatusBadRequest,
			Message:   "sessionId, language and sourceCode are required",
		})
	}

	if _, err := judge.LanguageID(payload.Language); err != nil {
		return broadcasts.SendError(ctx.Conn, wsstypes.SUBMIT_SOLUTION, wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeInput,
			Code:      http.StatusBadRequest,
			Message:   "unsupported language: " + payload.Language,
		})
	}

	claims, err := ctx.State.JwtManager.ValidateToken(payload.Token)
	if err != nil || claims.SessionID != payload.SessionID {
		return broadcasts.SendError(ctx.Conn, wsstypes.SUBMIT_SOLUTION, wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeInput,
			Code:      http.StatusUnauthorized,
			Message:   "invalid or expired session token",
		})
	}

	s, ok := ctx.State.Registry.Get(payload.SessionID)
	if !ok {
		return broadcasts.SendError(ctx.Conn, wsstypes.SUBMIT_SOLUTION, wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeNotFound,
			Code:      http.StatusNotFound,
			Message:   "session not found",
		})
	}

	if err := s.Submit(ctx.ConnID, payload.Language, payload.SourceCode); err != nil {
		return broadcasts.SendError(ctx.Conn, wsstypes.SUBMIT_SOLUTION, submitErrorInfo(err))
	}

	return broadcasts.SendSuccess(ctx.Conn, wsstypes.SUBMIT_SOLUTION, map[string]interface{}{
		"queued": true,
	})
}

func submitErrorInfo(err error) wsstypes.ErrorInfo {
	switch {
	case errors.Is(err, session.ErrNotParticipant):
		return wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeNotFound,
			Code:      http.StatusForbidden,
			Message:   "you are not a participant of this session",
		}
	case errors.Is(err, session.ErrAlreadyDecided):
		return wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeInvalidState,
			Code:      http.StatusConflict,
			Message:   "session already finished, the outcome is final",
		}
	case errors.Is(err, session.ErrNoAttemptsLeft):
		return wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeInvalidState,
			Code:      http.StatusConflict,
			Message:   "no submission attempts left",
		}
	default:
		return wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeInvalidState,
			Code:      http.StatusConflict,
			Message:   "submissions are not accepted in the current session state",
		}
	}
}
