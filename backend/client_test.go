package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/deepwiki-chat/chat"
	"github.com/gosuda/deepwiki-chat/internal/mockbackend"
)

func newTestClient(t *testing.T, cfg mockbackend.Config) (*Client, *mockbackend.Server) {
	t.Helper()
	mock := mockbackend.New(cfg)
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)
	return NewClient(func(c *ClientConfig) { c.BaseURL = srv.URL + "/" }), mock
}

func TestNewClientDefaultsToServerBaseURL(t *testing.T) {
	t.Setenv("SERVER_BASE_URL", "https://api.example.com/")
	assert.Equal(t, "https://api.example.com", NewClient().BaseURL())

	t.Setenv("SERVER_BASE_URL", "")
	assert.Equal(t, "http://localhost:8001", NewClient().BaseURL())
}

func TestStreamChatCompletions(t *testing.T) {
	client, mock := newTestClient(t, mockbackend.Config{
		Reply: mockbackend.Frames("Leases ", "expire ", "after 30s."),
	})

	req := &chat.ChatCompletionRequest{
		RepoURL:  "https://github.com/gosuda/portal",
		Messages: chat.Question("when do leases expire?"),
	}

	var chunks []string
	err := client.StreamChatCompletions(context.Background(), req, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Leases expire after 30s.", strings.Join(chunks, ""))

	want, err := json.Marshal(req)
	require.NoError(t, err)
	require.Len(t, mock.Requests(), 1)
	assert.JSONEq(t, string(want), string(mock.Requests()[0]))
}

func TestStreamChatCompletionsCallbackError(t *testing.T) {
	client, _ := newTestClient(t, mockbackend.Config{Reply: mockbackend.Frames("a", "b")})

	stop := errors.New("stop")
	err := client.StreamChatCompletions(context.Background(), &chat.ChatCompletionRequest{}, func(string) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
}

func TestStreamChatCompletionsStatusError(t *testing.T) {
	client, _ := newTestClient(t, mockbackend.Config{StreamStatus: http.StatusServiceUnavailable})

	_, err := client.Ask(context.Background(), &chat.ChatCompletionRequest{RepoURL: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "Service Unavailable", apiErr.Message)
	assert.Equal(t, "[503] Service Unavailable", apiErr.Error())
}

func TestProcessedProjects(t *testing.T) {
	client, _ := newTestClient(t, mockbackend.Config{
		Projects: []map[string]any{{
			"id":          "deepwiki_cache_github_gosuda_portal_en.json",
			"owner":       "gosuda",
			"repo":        "portal",
			"name":        "gosuda/portal",
			"repo_type":   "github",
			"submittedAt": 1760000000000,
			"language":    "en",
		}},
	})

	projects, err := client.ProcessedProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "gosuda/portal", projects[0].Name)
	assert.Equal(t, int64(1760000000000), projects[0].SubmittedAt)
}

func TestProcessedProjectsRejectsObject(t *testing.T) {
	client, _ := newTestClient(t, mockbackend.Config{Projects: map[string]any{"projects": []any{}}})

	_, err := client.ProcessedProjects(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "expected JSON array")
}

func TestProcessedProjectsRejectsNonArrayBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"null", "null", "expected JSON array"},
		{"string", `"projects"`, "expected JSON array"},
		{"empty", "", "expected JSON array"},
		{"bad entry", `[{"id":"p1","submittedAt":1.5}]`, "malformed project entry"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			client := NewClient(func(c *ClientConfig) { c.BaseURL = srv.URL })
			projects, err := client.ProcessedProjects(context.Background())
			assert.Nil(t, projects)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusOK, apiErr.StatusCode)
			assert.Contains(t, apiErr.Message, tc.want)
			assert.Equal(t, tc.body, apiErr.ResponseText)
		})
	}
}

func TestProcessedProjectsEmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, " []\n")
	}))
	defer srv.Close()

	projects, err := NewClient(func(c *ClientConfig) { c.BaseURL = srv.URL }).ProcessedProjects(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, projects)
	assert.Empty(t, projects)
}

func TestLocalRepoStructureRejectsBlankPath(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := NewClient(func(c *ClientConfig) { c.BaseURL = srv.URL })
	for _, path := range []string{"", "   "} {
		structure, err := client.LocalRepoStructure(context.Background(), path)
		assert.Nil(t, structure)
		assert.ErrorIs(t, err, ErrEmptyPath, "path=%q", path)
	}
	assert.Zero(t, hits.Load())
}

func TestLocalRepoStructure(t *testing.T) {
	client, _ := newTestClient(t, mockbackend.Config{
		Structures: map[string]any{
			"/src/portal": map[string]string{"file_tree": "cmd/\nsdk/", "readme": "# Portal"},
			"/src/broken": []string{"nope"},
		},
	})

	structure, err := client.LocalRepoStructure(context.Background(), "/src/portal")
	require.NoError(t, err)
	assert.Equal(t, "cmd/\nsdk/", structure.FileTree)
	assert.Equal(t, "# Portal", structure.Readme)

	_, err = client.LocalRepoStructure(context.Background(), "/src/missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Directory not found: /src/missing", apiErr.Message)

	_, err = client.LocalRepoStructure(context.Background(), "/src/broken")
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "expected JSON object")
}

func TestNewStatusErrorPrefersJSONFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"No path provided"}`, "No path provided"},
		{"error", `{"error":"bad token"}`, "bad token"},
		{"message", `{"message":"try later"}`, "try later"},
		{"plain text", `upstream exploded`, "Bad Gateway"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}
			err := newStatusError(resp, []byte(tc.body))
			assert.Equal(t, tc.want, err.Message)
			assert.Equal(t, tc.body, err.ResponseText)
		})
	}
}

func TestDecodeChunksKeepsRunesWhole(t *testing.T) {
	text := "저장소 구조를 설명합니다: done"
	r := iotest.OneByteReader(strings.NewReader(text))

	var chunks []string
	err := decodeChunks(r, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %q splits a rune", c)
	}
}

func TestDecodeChunksReadError(t *testing.T) {
	boom := errors.New("boom")
	err := decodeChunks(io.MultiReader(strings.NewReader("hi"), iotest.ErrReader(boom)), func(string) error { return nil })
	assert.ErrorIs(t, err, boom)
}
