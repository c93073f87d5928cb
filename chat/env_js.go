//go:build js && wasm

package chat

import "syscall/js"

// DetectEnvironment reads globalThis.location. Hosts without one, such as
// Node.js, are treated as server-side.
func DetectEnvironment() Environment {
	loc := js.Global().Get("location")
	if loc.IsUndefined() || loc.IsNull() {
		return ServerSide
	}
	return Environment{
		HasPageLocation: true,
		PageProtocol:    loc.Get("protocol").String(),
		PageHost:        loc.Get("host").String(),
		PageHostname:    loc.Get("hostname").String(),
	}
}
