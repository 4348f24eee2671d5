package wsshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/codeclash-dev/DuelWssManagerService/internal/session"
	"github.com/codeclash-dev/DuelWssManagerService/internal/wss/broadcasts"
	wsstypes "github.com/codeclash-dev/DuelWssManagerService/internal/wss/types"
)

// JoinSessionHandler attaches a matched player's connection to their duel
// session channel, authenticated by the token minted at match time.
func JoinSessionHandler(ctx *wsstypes.WsContext) error {
	var payload wsstypes.JoinSessionPayload
	raw, err := json.Marshal(ctx.Payload)
	if err == nil {
		err = json.Unmarshal(raw, &payload)
	}
	if err != nil || payload.SessionID == "" || payload.Token == "" {
		return broadcasts.SendError(ctx.Conn, wsstypes.JOIN_SESSION, wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeInput,
			Code:      http.StatusBadRequest,
			Message:   "sessionId and token are required",
		})
	}

	claims, err := ctx.State.JwtManager.ValidateToken(payload.Token)
	if err != nil || claims.SessionID != payload.SessionID {
		return broadcasts.SendError(ctx.Conn, wsstypes.JOIN_SESSION, wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeInput,
			Code:      http.StatusUnauthorized,
			Message:   "invalid or expired session token",
		})
	}

	s, ok := ctx.State.Registry.Get(payload.SessionID)
	if !ok {
		return broadcasts.SendError(ctx.Conn, wsstypes.JOIN_SESSION, wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeNotFound,
			Code:      http.StatusNotFound,
			Message:   "session not found",
		})
	}

	if err := s.Attach(ctx.ConnID, claims.UserID, ctx.Conn); err != nil {
		info := wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeNotFound,
			Code:      http.StatusForbidden,
			Message:   "you are not a participant of this session",
		}
		if errors.Is(err, session.ErrUserMismatch) {
			info.Message = "token does not match the session roster"
		}
		return broadcasts.SendError(ctx.Conn, wsstypes.JOIN_SESSION, info)
	}

	return broadcasts.SendSuccess(ctx.Conn, wsstypes.JOIN_SESSION, map[string]interface{}{
		"sessionId": payload.SessionID,
		"userId":    claims.UserID,
	})
}
