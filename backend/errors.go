package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is returned when the service answers with a non-2xx status or
// an unexpected body.
type APIError struct {
	StatusCode   int
	Message      string
	ResponseText string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
	}
	return e.Message
}

// newStatusError builds an APIError from a failed response body. The
// message prefers the JSON detail, error or message field.
func newStatusError(resp *http.Response, body []byte) *APIError {
	message := http.StatusText(resp.StatusCode)
	if message == "" {
		message = resp.Status
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if v, ok := payload[key]; ok && v != nil {
				if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
					message = s
					break
				}
			}
		}
	}

	return &APIError{
		StatusCode:   resp.StatusCode,
		Message:      message,
		ResponseText: string(body),
	}
}
