// Package backend is the HTTP counterpart of package chat: it streams chat
// completions over plain HTTP and queries the service's project endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/deepwiki-chat/chat"
	"github.com/gosuda/deepwiki-chat/utils"
)

const (
	DefaultTimeout = 300 * time.Second

	acceptHeader = "application/json, text/event-stream;q=0.9, */*;q=0.8"
	chunkSize    = 4096
)

// ErrEmptyPath is returned by LocalRepoStructure for a blank path.
var ErrEmptyPath = errors.New("path cannot be empty")

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ClientOption mutates a ClientConfig.
type ClientOption func(*ClientConfig)

// Client talks to the DeepWiki service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. The base URL defaults to SERVER_BASE_URL.
func NewClient(opt ...ClientOption) *Client {
	config := &ClientConfig{
		BaseURL: utils.ServerBaseURL(),
		Timeout: DefaultTimeout,
	}
	for _, o := range opt {
		o(config)
	}

	hc := config.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		baseURL:    utils.NormalizeBaseURL(config.BaseURL),
		httpClient: hc,
	}
}

// BaseURL returns the service URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StreamChatCompletions posts req to /chat/completions/stream and calls fn
// with each text chunk as it arrives. Chunks never split a UTF-8 sequence.
// An error returned by fn stops the stream and is returned as is.
func (c *Client) StreamChatCompletions(ctx context.Context, req *chat.ChatCompletionRequest, fn func(chunk string) error) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/chat/completions/stream", nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("stream chat completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		text, _ := io.ReadAll(resp.Body)
		return newStatusError(resp, text)
	}

	log.Debug().Str("base_url", c.baseURL).Msg("[backend] chat stream started")
	return decodeChunks(resp.Body, fn)
}

// Ask streams req and returns the concatenated answer.
func (c *Client) Ask(ctx context.Context, req *chat.ChatCompletionRequest) (string, error) {
	var answer bytes.Buffer
	err := c.StreamChatCompletions(ctx, req, func(chunk string) error {
		answer.WriteString(chunk)
		return nil
	})
	return answer.String(), err
}

// ProcessedProjects lists the projects the service has already indexed.
func (c *Client) ProcessedProjects(ctx context.Context) ([]ProcessedProject, error) {
	body, resp, err := c.getJSON(ctx, "/api/processed_projects", nil)
	if err != nil {
		return nil, err
	}

	if !isJSONArray(body) {
		return nil, &APIError{
			StatusCode:   resp.StatusCode,
			Message:      "unexpected response from /api/processed_projects (expected JSON array)",
			ResponseText: string(body),
		}
	}

	projects := []ProcessedProject{}
	if err := json.Unmarshal(body, &projects); err != nil {
		return nil, &APIError{
			StatusCode:   resp.StatusCode,
			Message:      fmt.Sprintf("malformed project entry from /api/processed_projects: %v", err),
			ResponseText: string(body),
		}
	}
	return projects, nil
}

// LocalRepoStructure returns the file tree and README of a local repository.
func (c *Client) LocalRepoStructure(ctx context.Context, path string) (*RepoStructure, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrEmptyPath
	}

	body, resp, err := c.getJSON(ctx, "/local_repo/structure", url.Values{"path": {path}})
	if err != nil {
		return nil, err
	}

	var structure RepoStructure
	if err := json.Unmarshal(body, &structure); err != nil || !isJSONObject(body) {
		return nil, &APIError{
			StatusCode:   resp.StatusCode,
			Message:      "unexpected response from /local_repo/structure (expected JSON object)",
			ResponseText: string(body),
		}
	}
	return &structure, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values) ([]byte, *http.Response, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, newStatusError(resp, body)
	}
	return body, resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	return req, nil
}

// decodeChunks reads r and hands complete UTF-8 text to fn, holding back a
// trailing partial rune until the next read completes it.
func decodeChunks(r io.Reader, fn func(string) error) error {
	buf := make([]byte, chunkSize)
	var pending []byte

	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			cut := completePrefix(pending)
			if cut > 0 {
				if ferr := fn(string(pending[:cut])); ferr != nil {
					return ferr
				}
				pending = append(pending[:0], pending[cut:]...)
			}
		}
		if err == io.EOF {
			if len(pending) > 0 {
				return fn(string(pending))
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read chat stream: %w", err)
		}
	}
}

// completePrefix returns the length of the longest prefix of b that does not
// end inside a multi-byte sequence.
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}

func isJSONObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

func isJSONArray(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '['
}
