// Package snapshot encodes and decodes the whole-board JSON document used by
// export and import.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gosimple/slug"
	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// DefaultBoard names the board in export file names when none is configured.
const DefaultBoard = "freelancer dashboard"

// Snapshot is a full board: column layout, rows and the export timestamp.
type Snapshot struct {
	Columns    []types.Column `json:"columns"`
	Rows       []types.Row    `json:"rows"`
	ExportDate time.Time      `json:"exportDate"`
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s Snapshot) error {
	if s.Columns == nil {
		s.Columns = []types.Column{}
	}
	if s.Rows == nil {
		s.Rows = []types.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// Decode reads a snapshot. Documents that are not JSON, or that lack a
// columns or rows array, are rejected with types.ErrInvalidImport.
func Decode(r io.Reader) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return Snapshot{}, fmt.Errorf("%w: not valid JSON", types.ErrInvalidImport)
	}
	doc := gjson.ParseBytes(data)
	for _, key := range []string{"columns", "rows"} {
		if !doc.Get(key).IsArray() {
			return Snapshot{}, fmt.Errorf("%w: missing %s", types.ErrInvalidImport, key)
		}
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", types.ErrInvalidImport, err)
	}
	for i := range s.Rows {
		if s.Rows[i].ID == "" {
			return Snapshot{}, fmt.Errorf("%w: row %d has no id", types.ErrInvalidImport, i)
		}
	}
	return s, nil
}

// FileName returns the export file name for board on the day of now, e.g.
// freelancer-dashboard-2026-01-31.json.
func FileName(board string, now time.Time) string {
	if board == "" {
		board = DefaultBoard
	}
	return fmt.Sprintf("%s-%s.json", slug.Make(board), now.UTC().Format("2006-01-02"))
}
