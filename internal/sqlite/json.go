package sqlite

// JSONL record shapes. Field names match the SQLite column names so the
// loader can insert records without a per-table mapping.

// userJSON is one line of users.jsonl.
type userJSON struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at"`
}

// projectJSON is one line of projects.jsonl.
type projectJSON struct {
	ProjectID string         `json:"project_id"`
	UserID    string         `json:"user_id"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Link      string         `json:"link"`
	Deadline  string         `json:"deadline"`
	Prize     string         `json:"prize"`
	Status    string         `json:"status"`
	Archived  bool           `json:"archived"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at"`
}
