//go:build !(js && wasm)

// Command webchat exposes the chat client to JavaScript when built with
// GOOS=js GOARCH=wasm.
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "webchat must be built with GOOS=js GOARCH=wasm")
	os.Exit(2)
}
