package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosuda/deepwiki-chat/utils"
)

// Defaults applied by BuildRequest.
const (
	DefaultRepoType = "github"
	DefaultProvider = "google"
	DefaultLanguage = "en"
)

var (
	ErrMissingRepoURL  = errors.New("repo url is required")
	ErrMissingMessages = errors.New("at least one message is required")
)

// AskOptions describes a question about a repository. Filters are lists
// here; BuildRequest flattens them into the newline separated form the
// service expects.
type AskOptions struct {
	RepoURL  string
	RepoType string
	Token    string
	FilePath string
	Provider string
	Model    string
	Language string

	Messages []ChatMessage

	ExcludedDirs  []string
	ExcludedFiles []string
	IncludedDirs  []string
	IncludedFiles []string
}

// BuildRequest validates opts and converts it into a ChatCompletionRequest.
func BuildRequest(opts AskOptions) (*ChatCompletionRequest, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	req := &ChatCompletionRequest{
		RepoURL:       strings.TrimSpace(opts.RepoURL),
		Messages:      append([]ChatMessage(nil), opts.Messages...),
		FilePath:      strings.TrimSpace(opts.FilePath),
		Token:         strings.TrimSpace(opts.Token),
		Type:          orDefault(opts.RepoType, DefaultRepoType),
		Provider:      orDefault(opts.Provider, DefaultProvider),
		Model:         strings.TrimSpace(opts.Model),
		Language:      orDefault(opts.Language, DefaultLanguage),
		ExcludedDirs:  utils.JoinLines(opts.ExcludedDirs),
		ExcludedFiles: utils.JoinLines(opts.ExcludedFiles),
		IncludedDirs:  utils.JoinLines(opts.IncludedDirs),
		IncludedFiles: utils.JoinLines(opts.IncludedFiles),
	}
	return req, nil
}

// Question is a shorthand for a conversation holding a single user message.
func Question(content string) []ChatMessage {
	return []ChatMessage{{Role: RoleUser, Content: content}}
}

func (opts AskOptions) validate() error {
	var errs []string

	if strings.TrimSpace(opts.RepoURL) == "" {
		errs = append(errs, ErrMissingRepoURL.Error())
	}
	if len(opts.Messages) == 0 {
		errs = append(errs, ErrMissingMessages.Error())
	}
	for i, m := range opts.Messages {
		if !m.Role.Valid() {
			errs = append(errs, fmt.Sprintf("messages[%d]: unknown role %q", i, m.Role))
		}
		if strings.TrimSpace(m.Content) == "" {
			errs = append(errs, fmt.Sprintf("messages[%d]: content cannot be empty", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid ask request:\n - %s", strings.Join(errs, "\n - "))
	}
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
