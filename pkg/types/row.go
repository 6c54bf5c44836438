package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Row is one tracked project or contest entry. Values maps column IDs to
// cell strings; a missing key is the empty value.
type Row struct {
	ID       string
	Archived bool
	Values   map[string]string
}

// Get returns the value of the cell for colID, or "" when unset.
func (r Row) Get(colID string) string {
	return r.Values[colID]
}

// Set stores value for colID, allocating Values if needed.
func (r *Row) Set(colID, value string) {
	if r.Values == nil {
		r.Values = make(map[string]string)
	}
	r.Values[colID] = value
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := Row{ID: r.ID, Archived: r.Archived, Values: make(map[string]string, len(r.Values))}
	for k, v := range r.Values {
		out.Values[k] = v
	}
	return out
}

// CloneRows returns a deep copy of rows.
func CloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// MarshalJSON encodes the row as a flat object: id, archived and one key per
// column value.
func (r Row) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Values)+2)
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		obj[k] = r.Values[k]
	}
	obj["id"] = r.ID
	obj["archived"] = r.Archived
	return json.Marshal(obj)
}

// UnmarshalJSON decodes a flat row object. Non-string cell values are
// stringified; null values become empty cells.
func (r *Row) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = ""
	r.Archived = false
	r.Values = make(map[string]string, len(obj))
	for k, v := range obj {
		switch k {
		case "id":
			r.ID = Stringify(v)
		case "archived":
			b, _ := v.(bool)
			r.Archived = b
		default:
			r.Values[k] = Stringify(v)
		}
	}
	return nil
}

// Stringify renders a decoded JSON value as a cell string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
