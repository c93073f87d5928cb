//go:build !(js && wasm)

package chat

// DetectEnvironment always reports a server-side process outside the browser.
func DetectEnvironment() Environment {
	return ServerSide
}
