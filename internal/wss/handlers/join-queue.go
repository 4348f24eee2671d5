package wsshandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/codeclash-dev/DuelWssManagerService/internal/matchmaking"
	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"github.com/codeclash-dev/DuelWssManagerService/internal/rating"
	"github.com/codeclash-dev/DuelWssManagerService/internal/wss/broadcasts"
	wsstypes "github.com/codeclash-dev/DuelWssManagerService/internal/wss/types"
	"go.uber.org/zap"
)

// JoinQueueHandler puts the connection into the matchmaking queue. When no
// rating is supplied the stored rating record (or the initial rating) is
// used; clients cannot lower their band by omitting it.
func JoinQueueHandler(ctx *wsstypes.WsContext) error {
	var payload wsstypes.JoinQueuePayload
	raw, err := json.Marshal(ctx.Payload)
	if err == nil {
		err = json.Unmarshal(raw, &payload)
	}
	if err != nil {
		return broadcasts.SendError(ctx.Conn, wsstypes.JOIN_QUEUE, wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeInput,
			Code:      http.StatusBadRequest,
			Message:   "invalid joinQueue payload",
		})
	}
	if payload.UserID == "" {
		return broadcasts.SendError(ctx.Conn, wsstypes.JOIN_QUEUE, wsstypes.ErrorInfo{
			ErrorType: wsstypes.ErrorTypeInput,
			Code:      http.StatusBadRequest,
			Message:   "userId is required",
		})
	}

	if payload.Rating <= 0 {
		payload.Rating = lookupRating(ctx, payload.UserID)
	}

	position := ctx.State.Queue.Enqueue(matchmaking.Entry{
		ConnID:      ctx.ConnID,
		UserID:      payload.UserID,
		DisplayName: payload.DisplayName,
		Rating:      payload.Rating,
		Conn:        ctx.Conn,
	})

	if position == 0 {
		// matched immediately; the launcher already sent MATCH_FOUND
		return nil
	}

	return broadcasts.SendJSON(ctx.Conn, model.Event{
		Type: model.EventQueueStatus,
		Payload: model.QueueStatusPayload{
			Position:   position,
			RatingBand: ctx.State.BaseTolerance,
		},
	})
}

func lookupRating(ctx *wsstypes.WsContext, userID string) int {
	readCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	record, err := ctx.State.Ratings.Get(readCtx, userID)
	if err != nil {
		if !errors.Is(err, rating.ErrNoRecord) {
			ctx.State.Log.Warn("rating lookup failed",
				zap.String("userId", userID),
				zap.Error(err))
		}
		return rating.InitialRating
	}
	return record.CurrentRating
}
