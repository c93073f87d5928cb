//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"syscall/js"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/deepwiki-chat/chat"
)

// handles maps the integer ids returned to JavaScript to live connections.
var (
	handles sync.Map // map[int64]*chat.Conn
	nextID  atomic.Int64
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339, NoColor: true})

	api := js.Global().Get("Object").New()
	api.Set("open", js.FuncOf(openChat))
	api.Set("close", js.FuncOf(closeChat))
	api.Set("endpoint", js.FuncOf(func(this js.Value, args []js.Value) any {
		return chat.DetectEnvironment().Endpoint()
	}))
	js.Global().Set("__deepwiki_chat", api)
	log.Info().Msg("[webchat] registered as __deepwiki_chat")

	select {}
}

// openChat(request, onMessage, onError, onClose) -> id
// request is either a JSON string or a plain object.
func openChat(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return jsError("required parameter request missing")
	}

	raw := args[0]
	if raw.Type() != js.TypeString {
		raw = js.Global().Get("JSON").Call("stringify", raw)
	}
	var req chat.ChatCompletionRequest
	if err := json.Unmarshal([]byte(raw.String()), &req); err != nil {
		return jsError("invalid request: " + err.Error())
	}

	onMessage, onError, onClose := callbackArg(args, 1), callbackArg(args, 2), callbackArg(args, 3)
	id := nextID.Add(1)

	conn := chat.Open(context.Background(), &req, chat.Handlers{
		OnMessage: func(text string) {
			if onMessage.Truthy() {
				onMessage.Invoke(text)
			}
		},
		OnError: func(err error) {
			if onError.Truthy() {
				onError.Invoke(js.Global().Get("Error").New(err.Error()))
			}
		},
		OnClose: func() {
			handles.Delete(id)
			if onClose.Truthy() {
				onClose.Invoke()
			}
		},
	})
	handles.Store(id, conn)
	return id
}

// closeChat(id) is a no-op for unknown or already closed ids.
func closeChat(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeNumber {
		return nil
	}
	if v, ok := handles.Load(int64(args[0].Int())); ok {
		chat.Close(v.(*chat.Conn))
	}
	return nil
}

func callbackArg(args []js.Value, i int) js.Value {
	if i < len(args) && args[i].Type() == js.TypeFunction {
		return args[i]
	}
	return js.Undefined()
}

func jsError(msg string) js.Value {
	return js.Global().Get("Error").New(msg)
}
