package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequestDefaults(t *testing.T) {
	req, err := BuildRequest(AskOptions{
		RepoURL:  " https://github.com/gosuda/portal ",
		Messages: Question("How does the relay pick a lease?"),
	})
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/gosuda/portal", req.RepoURL)
	assert.Equal(t, DefaultRepoType, req.Type)
	assert.Equal(t, DefaultProvider, req.Provider)
	assert.Equal(t, DefaultLanguage, req.Language)
	assert.Empty(t, req.Token)
	assert.Empty(t, req.ExcludedDirs)
}

func TestBuildRequestJoinsFilters(t *testing.T) {
	req, err := BuildRequest(AskOptions{
		RepoURL:       "https://gitlab.com/acme/app",
		RepoType:      "gitlab",
		Messages:      Question("where is main?"),
		ExcludedDirs:  []string{" node_modules ", "", "dist"},
		ExcludedFiles: []string{"  "},
		IncludedFiles: []string{"cmd/main.go"},
		FilePath:      "cmd/main.go",
		Model:         "gemini-2.5-flash",
	})
	require.NoError(t, err)

	assert.Equal(t, "gitlab", req.Type)
	assert.Equal(t, "node_modules\ndist", req.ExcludedDirs)
	assert.Empty(t, req.ExcludedFiles)
	assert.Equal(t, "cmd/main.go", req.IncludedFiles)
	assert.Equal(t, "cmd/main.go", req.FilePath)
	assert.Equal(t, "gemini-2.5-flash", req.Model)
}

func TestBuildRequestValidation(t *testing.T) {
	_, err := BuildRequest(AskOptions{
		Messages: []ChatMessage{{Role: "robot", Content: ""}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMissingRepoURL.Error())
	assert.Contains(t, err.Error(), `messages[0]: unknown role "robot"`)
	assert.Contains(t, err.Error(), "messages[0]: content cannot be empty")

	_, err = BuildRequest(AskOptions{RepoURL: "https://github.com/a/b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMissingMessages.Error())
}

func TestChatCompletionRequestOmitsEmptyOptionals(t *testing.T) {
	req := ChatCompletionRequest{
		RepoURL:  "https://github.com/a/b",
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
		FilePath: "README.md",
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"repo_url":"https://github.com/a/b","messages":[{"role":"user","content":"hi"}],"filePath":"README.md"}`, string(data))
}
