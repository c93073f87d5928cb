// Package chat opens WebSocket conversations with the DeepWiki chat service.
package chat

// Role identifies the author of a ChatMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ChatMessage is a single turn of a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the payload sent as the first and only outbound
// frame of a chat connection. It is serialized verbatim; empty optional
// fields are left out of the JSON.
type ChatCompletionRequest struct {
	RepoURL       string        `json:"repo_url"`
	Messages      []ChatMessage `json:"messages"`
	FilePath      string        `json:"filePath,omitempty"`
	Token         string        `json:"token,omitempty"`
	Type          string        `json:"type,omitempty"`
	Provider      string        `json:"provider,omitempty"`
	Model         string        `json:"model,omitempty"`
	Language      string        `json:"language,omitempty"`
	ExcludedDirs  string        `json:"excluded_dirs,omitempty"`
	ExcludedFiles string        `json:"excluded_files,omitempty"`
	IncludedDirs  string        `json:"included_dirs,omitempty"`
	IncludedFiles string        `json:"included_files,omitempty"`
}
