package sqlite

// Schema DDL. The database is rebuilt from the JSONL files on every Attach,
// so there are no migrations.
const (
	createUsers = `CREATE TABLE users (
    user_id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createProjects = `CREATE TABLE projects (
    project_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    link TEXT NOT NULL DEFAULT '',
    deadline TEXT NOT NULL DEFAULT '',
    prize TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    archived INTEGER NOT NULL DEFAULT 0,
    metadata TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL
);`
)

// Index DDL for the list query.
const (
	idxProjectsUserCreated = `CREATE INDEX idx_projects_user_created ON projects(user_id, created_at DESC, project_id DESC);`
)

var schemaDDL = []string{
	createUsers,
	createProjects,
}

var indexDDL = []string{
	idxProjectsUserCreated,
}
