package broadcasts

import (
	"github.com/gorilla/websocket"

	wsstypes "github.com/codeclash-dev/DuelWssManagerService/internal/wss/types"
)

func SendJSON(conn *websocket.Conn, data interface{}) error {
	return conn.WriteJSON(data)
}

// SendError writes an ERROR-shaped response for the given inbound event.
func SendError(conn *websocket.Conn, eventType string, info wsstypes.ErrorInfo) error {
	return SendJSON(conn, map[string]interface{}{
		"type":    eventType,
		"status":  "error",
		"error":   info,
		"message": info.Message,
	})
}

// SendSuccess wraps a payload in the standard success envelope.
func SendSuccess(conn *websocket.Conn, eventType string, payload map[string]interface{}) error {
	return SendJSON(conn, map[string]interface{}{
		"type":    eventType,
		"status":  "success",
		"payload": payload,
	})
}
