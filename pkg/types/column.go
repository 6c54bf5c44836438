package types

import (
	"encoding/json"
	"strings"
)

// ColumnType determines how a column's cells are edited and validated.
type ColumnType string

// Column types.
const (
	ColumnText     ColumnType = "text"
	ColumnLink     ColumnType = "link"
	ColumnDate     ColumnType = "date"
	ColumnStatus   ColumnType = "status"
	ColumnCategory ColumnType = "category"
)

var validColumnTypes = map[ColumnType]bool{
	ColumnText:     true,
	ColumnLink:     true,
	ColumnDate:     true,
	ColumnStatus:   true,
	ColumnCategory: true,
}

// ParseColumnType returns the ColumnType for s. Unrecognized values are
// treated as text; the function never fails.
func ParseColumnType(s string) ColumnType {
	t := ColumnType(strings.ToLower(strings.TrimSpace(s)))
	if validColumnTypes[t] {
		return t
	}
	return ColumnText
}

// Core column IDs. These map to fixed fields of the remote record; every
// other column ID lives in the record's metadata blob.
const (
	ColName      = "col_1"
	ColCategory  = "col_cat"
	ColLink      = "col_2"
	ColDeadline  = "col_3"
	ColPrize     = "col_4"
	ColConverted = "col_converted"
	ColStatus    = "col_5"
)

// DefaultColumnTitle is the title given to columns created by AddColumn.
const DefaultColumnTitle = "New Variable"

// Column is one user-visible field definition. Columns are ordered; the order
// of a []Column is the table layout.
type Column struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Type  ColumnType `json:"type"`
}

// UnmarshalJSON decodes a column and coerces unknown types to text.
func (c *Column) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Type  string `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = raw.ID
	c.Title = raw.Title
	c.Type = ParseColumnType(raw.Type)
	return nil
}

// Monetary reports whether the column holds the prize or its conversion.
// Columns are matched by core ID or by their fixed titles.
func (c Column) Monetary() bool {
	if c.ID == ColPrize || c.ID == ColConverted {
		return true
	}
	title := strings.ToLower(strings.TrimSpace(c.Title))
	return title == "prize" || strings.HasPrefix(title, "converted")
}

// DefaultColumns returns the core column layout of a new board.
func DefaultColumns() []Column {
	return []Column{
		{ID: ColName, Title: "Project Name", Type: ColumnText},
		{ID: ColCategory, Title: "Category", Type: ColumnCategory},
		{ID: ColLink, Title: "Link", Type: ColumnLink},
		{ID: ColDeadline, Title: "Deadline", Type: ColumnDate},
		{ID: ColPrize, Title: "Prize", Type: ColumnText},
		{ID: ColConverted, Title: "Converted", Type: ColumnText},
		{ID: ColStatus, Title: "Status", Type: ColumnStatus},
	}
}

// FindColumn returns the column with the given ID.
func FindColumn(columns []Column, id string) (Column, bool) {
	for _, c := range columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// CloneColumns returns a copy of columns.
func CloneColumns(columns []Column) []Column {
	if columns == nil {
		return nil
	}
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}
