package backend

// ProcessedProject is an entry of /api/processed_projects.
type ProcessedProject struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Name        string `json:"name"`
	RepoType    string `json:"repo_type"`
	SubmittedAt int64  `json:"submittedAt"` // unix milliseconds
	Language    string `json:"language"`
}

// RepoStructure is the response of /local_repo/structure.
type RepoStructure struct {
	FileTree string `json:"file_tree"`
	Readme   string `json:"readme"`
}
