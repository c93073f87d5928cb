package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle state of a Conn.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Handlers receive connection events. Any of them may be nil.
// They are called from a single goroutine per connection, one at a time,
// in the order events arrive.
type Handlers struct {
	OnMessage func(text string)
	OnError   func(err error)
	OnClose   func()
}

// Conn is a live chat connection returned by Open.
type Conn struct {
	url    string
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state State
	ws    *websocket.Conn
}

// Open connects to the chat endpoint and returns without waiting for the
// handshake. Once the socket is open, req is sent as a single JSON text
// frame; every inbound text frame is then passed to h.OnMessage unchanged.
//
// Transport failures are reported to h.OnError without retrying. A close
// frame from the server, Close, and cancellation of ctx are not errors.
// h.OnClose runs exactly once, after any OnError.
func Open(ctx context.Context, req *ChatCompletionRequest, h Handlers, opts ...Option) *Conn {
	cfg := newConfig(opts)
	ctx, cancel := context.WithCancel(ctx)
	c := &Conn{
		url:    cfg.endpoint(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.run(ctx, cfg, req, h)
	return c
}

// Close closes conn. It is a no-op for a nil Conn.
func Close(conn *Conn) {
	if conn == nil {
		return
	}
	conn.Close()
}

// Close starts the close handshake of an open connection and returns
// immediately. A connection still in its opening handshake is abandoned
// instead, so no socket is left behind. Closing or closed connections are
// left untouched.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateOpen:
		c.state = StateClosing
		ws := c.ws
		go ws.Close(websocket.StatusNormalClosure, "")
	case StateConnecting:
		c.state = StateClosing
		c.cancel()
	}
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// URL returns the endpoint the connection was opened against.
func (c *Conn) URL() string {
	return c.url
}

// Done is closed after OnClose has returned.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) run(ctx context.Context, cfg *config, req *ChatCompletionRequest, h Handlers) {
	defer close(c.done)
	defer c.cancel()
	defer c.finish(h)

	payload, err := json.Marshal(req)
	if err != nil {
		c.fail(h, fmt.Errorf("encode request: %w", err))
		return
	}

	ws, err := c.dial(ctx, cfg)
	if err != nil {
		if ctx.Err() == nil {
			c.fail(h, fmt.Errorf("dial %s: %w", c.url, err))
		}
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "")
	ws.SetReadLimit(cfg.readLimit)

	if !c.markOpen(ws) {
		return
	}
	log.Info().Str("url", c.url).Msg("[chat] connection opened")

	if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
		if !c.expectedClose(ctx, err) {
			c.fail(h, fmt.Errorf("send request: %w", err))
		}
		return
	}

	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if !c.expectedClose(ctx, err) {
				c.fail(h, err)
			}
			return
		}
		if typ != websocket.MessageText {
			log.Debug().Str("url", c.url).Int("size", len(data)).Msg("[chat] ignoring binary frame")
			continue
		}
		if h.OnMessage != nil {
			h.OnMessage(string(data))
		}
	}
}

func (c *Conn) dial(ctx context.Context, cfg *config) (*websocket.Conn, error) {
	if cfg.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.dialTimeout)
		defer cancel()
	}
	ws, resp, err := websocket.Dial(ctx, c.url, cfg.dialOptions())
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return ws, err
}

// markOpen publishes ws unless Close ran during the handshake.
func (c *Conn) markOpen(ws *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnecting {
		return false
	}
	c.state = StateOpen
	c.ws = ws
	return true
}

func (c *Conn) expectedClose(ctx context.Context, err error) bool {
	if ctx.Err() != nil || c.State() == StateClosing {
		return true
	}
	return websocket.CloseStatus(err) != -1
}

func (c *Conn) fail(h Handlers, err error) {
	log.Debug().Err(err).Str("url", c.url).Msg("[chat] connection error")
	if h.OnError != nil {
		h.OnError(err)
	}
}

func (c *Conn) finish(h Handlers) {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()

	log.Info().Str("url", c.url).Msg("[chat] connection closed")
	if h.OnClose != nil {
		h.OnClose()
	}
}

// Ask sends req and collects every inbound frame into one answer. It
// returns once the connection closes, together with the first transport
// error or the context error.
func Ask(ctx context.Context, req *ChatCompletionRequest, opts ...Option) (string, error) {
	var (
		answer   strings.Builder
		firstErr error
	)
	conn := Open(ctx, req, Handlers{
		OnMessage: func(text string) { answer.WriteString(text) },
		OnError: func(err error) {
			if firstErr == nil {
				firstErr = err
			}
		},
	}, opts...)
	<-conn.Done()

	if firstErr == nil {
		firstErr = ctx.Err()
	}
	return answer.String(), firstErr
}
