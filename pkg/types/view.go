package types

// SortDirection orders a sorted column.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortConfig is the single active sort directive.
type SortConfig struct {
	ColumnID  string        `json:"columnId"`
	Direction SortDirection `json:"direction"`
}

// Filters maps column IDs to case-insensitive substring patterns. A missing
// key or an empty pattern imposes no constraint.
type Filters map[string]string

// Clone returns a copy of the filter map.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Active reports whether any filter has a non-empty pattern.
func (f Filters) Active() bool {
	for _, v := range f {
		if v != "" {
			return true
		}
	}
	return false
}

// EditingCell identifies the one cell in edit mode.
type EditingCell struct {
	RowID string `json:"rowId"`
	ColID string `json:"colId"`
}

// RateTable maps a 3-letter currency code to its value per 1 USD. A nil
// table means the feed is unavailable.
type RateTable map[string]float64
