package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// jsonlTableMapping maps JSONL files to their SQLite tables and columns.
var jsonlTableMapping = []struct {
	file    string
	table   string
	columns []string
}{
	{usersJSONL, "users", []string{"user_id", "email", "password_hash", "created_at"}},
	{projectsJSONL, "projects", []string{
		"project_id", "user_id", "name", "category", "link", "deadline",
		"prize", "status", "archived", "metadata", "created_at",
	}},
}

// loadAllJSONL reads each JSONL file from dataDir into its table inside one
// transaction: either every file loads or the database stays empty.
// Malformed lines and records violating constraints are skipped; unknown
// fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, mapping := range jsonlTableMapping {
		records, err := readJSONL(filepath.Join(dataDir, mapping.file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", mapping.file, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, mapping.table, mapping.columns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", mapping.file, mapping.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts JSONL records into table, extracting only the listed
// columns. Object values are stored as JSON text and booleans as 0/1.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}
		args := make([]any, len(columns))
		for i, col := range columns {
			switch v := obj[col].(type) {
			case nil:
				args[i] = defaultValue(col)
			case map[string]any, []any:
				b, err := json.Marshal(v)
				if err != nil {
					args[i] = defaultValue(col)
					continue
				}
				args[i] = string(b)
			case bool:
				if v {
					args[i] = 1
				} else {
					args[i] = 0
				}
			default:
				args[i] = v
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}

// defaultValue fills a column missing from a record.
func defaultValue(col string) any {
	switch col {
	case "metadata":
		return "{}"
	case "archived":
		return 0
	case "project_id", "user_id", "email", "password_hash", "created_at":
		return nil
	}
	return ""
}
