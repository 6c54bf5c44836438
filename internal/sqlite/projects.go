package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// Projects is the row store of one user's projects.
type Projects struct {
	b      *Backend
	userID string
}

var _ types.RowStore = (*Projects)(nil)

const projectColumns = `project_id, name, category, link, deadline, prize, status, archived, metadata, created_at`

// List returns the user's records, newest first.
func (p *Projects) List(ctx context.Context) ([]types.Record, error) {
	p.b.mu.RLock()
	defer p.b.mu.RUnlock()
	if !p.b.attached {
		return nil, types.ErrDetached
	}

	rows, err := p.b.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = ?
		 ORDER BY created_at DESC, project_id DESC`, p.userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	recs := []types.Record{}
	for rows.Next() {
		rec, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Insert stores rec for the user under a new ID.
func (p *Projects) Insert(ctx context.Context, rec types.Record) (types.Record, error) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if !p.b.attached {
		return types.Record{}, types.ErrDetached
	}

	rec.ID = generateUUID()
	createdAt := p.b.timestamp()
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return types.Record{}, fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = p.b.db.ExecContext(ctx,
		`INSERT INTO projects (project_id, user_id, name, category, link, deadline, prize, status, archived, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, p.userID, rec.Name, rec.Category, rec.Link, rec.Deadline, rec.Prize, rec.Status,
		boolInt(rec.Archived), string(meta), createdAt)
	if err != nil {
		return types.Record{}, fmt.Errorf("inserting project: %w", err)
	}
	if err := p.b.persistProjects(ctx); err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

// Update applies patch to one of the user's records.
// Returns types.ErrNotFound if the user has no such record.
func (p *Projects) Update(ctx context.Context, id string, patch types.RecordPatch) error {
	if id == "" {
		return types.ErrInvalidID
	}
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if !p.b.attached {
		return types.ErrDetached
	}

	row := p.b.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE project_id = ? AND user_id = ?`, id, p.userID)
	rec, err := scanProject(row)
	if err != nil {
		return err
	}
	patch.Apply(&rec)
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = p.b.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, category = ?, link = ?, deadline = ?, prize = ?,
		 status = ?, archived = ?, metadata = ? WHERE project_id = ? AND user_id = ?`,
		rec.Name, rec.Category, rec.Link, rec.Deadline, rec.Prize, rec.Status,
		boolInt(rec.Archived), string(meta), id, p.userID)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	return p.b.persistProjects(ctx)
}

// Delete removes one of the user's records.
// Returns types.ErrNotFound if the user has no such record.
func (p *Projects) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if !p.b.attached {
		return types.ErrDetached
	}

	res, err := p.b.db.ExecContext(ctx,
		`DELETE FROM projects WHERE project_id = ? AND user_id = ?`, id, p.userID)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %s: %w", id, types.ErrNotFound)
	}
	return p.b.persistProjects(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (types.Record, error) {
	var rec types.Record
	var archived int
	var meta, createdAt string
	err := s.Scan(&rec.ID, &rec.Name, &rec.Category, &rec.Link, &rec.Deadline, &rec.Prize,
		&rec.Status, &archived, &meta, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, types.ErrNotFound
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("scanning project: %w", err)
	}
	rec.Archived = archived != 0
	rec.Metadata = map[string]any{}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			return types.Record{}, fmt.Errorf("parsing project metadata: %w", err)
		}
	}
	rec.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return types.Record{}, fmt.Errorf("parsing project created_at: %w", err)
		}
	}
	return rec, nil
}

// persistProjects rewrites projects.jsonl from the projects table.
// The caller must hold b.mu.
func (b *Backend) persistProjects(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx,
		`SELECT project_id, user_id, name, category, link, deadline, prize, status, archived, metadata, created_at
		 FROM projects ORDER BY created_at, project_id`)
	if err != nil {
		return fmt.Errorf("reading projects for JSONL: %w", err)
	}
	defer rows.Close()

	var records []any
	for rows.Next() {
		var p projectJSON
		var archived int
		var meta string
		if err := rows.Scan(&p.ProjectID, &p.UserID, &p.Name, &p.Category, &p.Link, &p.Deadline,
			&p.Prize, &p.Status, &archived, &meta, &p.CreatedAt); err != nil {
			return fmt.Errorf("scanning project for JSONL: %w", err)
		}
		p.Archived = archived != 0
		p.Metadata = map[string]any{}
		_ = json.Unmarshal([]byte(meta), &p.Metadata)
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(b.path(projectsJSONL), records)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
