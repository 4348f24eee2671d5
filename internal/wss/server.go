package wss

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	wsstypes "github.com/codeclash-dev/DuelWssManagerService/internal/wss/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WsHandler upgrades the connection and pumps inbound events through the
// dispatcher. One goroutine per connection; a read error triggers cleanup.
func WsHandler(dispatcher *Dispatcher, state *wsstypes.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			state.Log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		connID := uuid.New().String()
		state.Log.Info("websocket connected", zap.String("connId", connID))

		for {
			// idle connections must ping before the read deadline
			_ = conn.SetReadDeadline(time.Now().Add(model.WebsocketReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				state.Log.Info("websocket closed",
					zap.String("connId", connID),
					zap.Error(err))
				cleanupConnection(state, connID)
				return
			}

			var wsMsg wsstypes.WsMessage
			if err := json.Unmarshal(msg, &wsMsg); err != nil {
				state.Log.Warn("invalid message format",
					zap.String("connId", connID),
					zap.Error(err))
				continue
			}

			ctx := &wsstypes.WsContext{
				ConnID:  connID,
				Conn:    conn,
				Payload: wsMsg.Payload,
				State:   state,
			}

			if err := dispatcher.Dispatch(wsMsg.Type, ctx); err != nil {
				state.Log.Debug("dispatch error",
					zap.String("event", wsMsg.Type),
					zap.Error(err))
			}
		}
	}
}

// cleanupConnection releases everything a dropped connection owned: its queue
// entry, and its seat in a live session (which resolves the duel in the
// opponent's favor while ACTIVE).
func cleanupConnection(state *wsstypes.State, connID string) {
	if state.Queue.Dequeue(connID) {
		state.Log.Info("removed queue entry for dropped connection",
			zap.String("connId", connID))
	}

	if s, ok := state.Registry.SessionForConn(connID); ok {
		s.Disconnect(connID)
	}
}
