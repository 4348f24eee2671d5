package wsshandler

import (
	"github.com/codeclash-dev/DuelWssManagerService/internal/wss/broadcasts"
	wsstypes "github.com/codeclash-dev/DuelWssManagerService/internal/wss/types"
)

// LeaveQueueHandler removes the connection's queue entry. Removing an absent
// entry is a no-op, not an error.
func LeaveQueueHandler(ctx *wsstypes.WsContext) error {
	removed := ctx.State.Queue.Dequeue(ctx.ConnID)
	return broadcasts.SendSuccess(ctx.Conn, wsstypes.LEAVE_QUEUE, map[string]interface{}{
		"removed": removed,
	})
}

// PingHandler keeps idle connections alive.
func PingHandler(ctx *wsstypes.WsContext) error {
	return broadcasts.SendSuccess(ctx.Conn, wsstypes.PING_SERVER, map[string]interface{}{
		"pong": true,
	})
}
