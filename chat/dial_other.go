//go:build !(js && wasm)

package chat

import "github.com/coder/websocket"

func (c *config) dialOptions() *websocket.DialOptions {
	return &websocket.DialOptions{
		HTTPClient: c.httpClient,
		HTTPHeader: c.header,
	}
}
