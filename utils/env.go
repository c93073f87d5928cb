package utils

import (
	"os"
	"strings"
)

// EnvOrDefault returns the trimmed value of key, or def when it is unset or blank.
func EnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// ServerBaseURL reads SERVER_BASE_URL, falling back to DefaultServerBaseURL.
// It is read on every call so that tests and long-lived processes observe changes.
func ServerBaseURL() string {
	return NormalizeBaseURL(EnvOrDefault("SERVER_BASE_URL", DefaultServerBaseURL))
}
