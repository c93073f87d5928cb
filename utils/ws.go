package utils

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

// defaultWebSocketUpgrader provides a permissive upgrader used by the development backend.
var defaultWebSocketUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// UpgradeWebSocket upgrades the request/response to a WebSocket connection using defaultWebSocketUpgrader
func UpgradeWebSocket(w http.ResponseWriter, r *http.Request, responseHeader http.Header) (*websocket.Conn, error) {
	return defaultWebSocketUpgrader.Upgrade(w, r, responseHeader)
}

// IsCloseError reports whether err carries a WebSocket close frame.
func IsCloseError(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}
