//go:build js && wasm

package chat

import "github.com/coder/websocket"

// The browser owns the handshake, so client and header options do not apply.
func (c *config) dialOptions() *websocket.DialOptions {
	return &websocket.DialOptions{}
}
