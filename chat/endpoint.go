package chat

import (
	"github.com/gosuda/deepwiki-chat/utils"
)

// Environment describes where the client runs. A browser page exposes a
// location; a server-side process does not.
type Environment struct {
	HasPageLocation bool
	PageProtocol    string // "https:" or "http:"
	PageHost        string // hostname plus optional port
	PageHostname    string
}

// ServerSide is the environment of a process without a page location.
var ServerSide = Environment{}

// ResolveEndpoint returns the chat WebSocket URL for env.
//
// Pages served from a loopback host talk to baseURL because in local
// development the front-end and the service listen on different ports.
// Other pages reuse their own host. Without a page, baseURL is used.
func ResolveEndpoint(env Environment, baseURL string) string {
	if env.HasPageLocation && !utils.IsLoopbackHost(env.PageHostname) {
		return utils.WebSocketScheme(env.PageProtocol) + "://" + env.PageHost + utils.ChatPath
	}
	return utils.ToWebSocketURL(baseURL) + utils.ChatPath
}

// Endpoint resolves the chat URL against SERVER_BASE_URL, read on every call.
func (env Environment) Endpoint() string {
	return ResolveEndpoint(env, utils.ServerBaseURL())
}
