package utils

import (
	"strings"

	"golang.org/x/net/idna"
)

// DefaultServerBaseURL is used when SERVER_BASE_URL is not set.
const DefaultServerBaseURL = "http://localhost:8001"

// ChatPath is appended to every resolved WebSocket base URL.
const ChatPath = "/ws/chat"

var loopbackHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"::1":       {},
}

// IsLoopbackHost reports whether hostname names the local machine.
// Only localhost, 127.0.0.1 and ::1 are recognized. IPv6 brackets are
// ignored and names go through IDNA lookup mapping, so letter case and
// full-width forms such as "ｌｏｃａｌｈｏｓｔ" match too.
func IsLoopbackHost(hostname string) bool {
	h := strings.TrimSpace(hostname)
	h = strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
	if h == "" {
		return false
	}
	if ascii, err := idna.Lookup.ToASCII(h); err == nil {
		h = ascii
	} else {
		h = strings.ToLower(h)
	}
	_, ok := loopbackHosts[h]
	return ok
}

// NormalizeBaseURL trims whitespace and trailing slashes from a base URL.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// ToWebSocketURL rewrites an HTTP base URL into its WebSocket form.
// Examples:
//   - "https://api.example.com"  -> "wss://api.example.com"
//   - "http://localhost:8001"    -> "ws://localhost:8001"
//   - "wss://api.example.com"    -> unchanged
//   - "localhost:8001"           -> "ws://localhost:8001"
func ToWebSocketURL(base string) string {
	base = NormalizeBaseURL(base)
	lower := strings.ToLower(base)
	switch {
	case strings.HasPrefix(lower, "https://"):
		return "wss://" + base[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		return "ws://" + base[len("http://"):]
	case strings.HasPrefix(lower, "wss://"), strings.HasPrefix(lower, "ws://"):
		return base
	default:
		return "ws://" + base
	}
}

// WebSocketScheme maps a page protocol ("https", "https:", "http:") to ws or wss.
func WebSocketScheme(protocol string) string {
	p := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(protocol), ":"))
	if p == "https" {
		return "wss"
	}
	return "ws"
}

// ParseList splits a comma-separated string into trimmed, non-empty items.
func ParseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinLines trims every value, drops blanks and joins the rest with newlines.
// It returns "" when nothing is left.
func JoinLines(values []string) string {
	items := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			items = append(items, v)
		}
	}
	return strings.Join(items, "\n")
}
