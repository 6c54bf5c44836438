// Package grid computes the visible projection of a board: archive
// partition, column filters and a single type-aware sort. It never mutates
// its inputs.
package grid

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/gigboard/internal/currency"
	"github.com/mesh-intelligence/gigboard/internal/deadline"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// View is the view state applied to a row set.
type View struct {
	Columns      []types.Column
	Filters      types.Filters
	Sort         *types.SortConfig // nil keeps input order
	ShowArchived bool
	Converter    currency.Converter
	Rates        types.RateTable
}

// VisibleRows returns copies of the rows that pass the archive partition and
// every filter, ordered by the sort directive. Ties keep their input order.
func VisibleRows(rows []types.Row, v View) []types.Row {
	fold := cases.Fold()
	patterns := make(map[string]string, len(v.Filters))
	for colID, p := range v.Filters {
		if p != "" {
			patterns[colID] = fold.String(p)
		}
	}

	out := make([]types.Row, 0, len(rows))
	for _, r := range rows {
		if r.Archived != v.ShowArchived {
			continue
		}
		if !matches(r, patterns, fold) {
			continue
		}
		out = append(out, r.Clone())
	}

	if v.Sort != nil && v.Sort.ColumnID != "" {
		sortRows(out, v)
	}
	return out
}

func matches(r types.Row, patterns map[string]string, fold cases.Caser) bool {
	for colID, p := range patterns {
		if !strings.Contains(fold.String(r.Get(colID)), p) {
			return false
		}
	}
	return true
}

func sortRows(rows []types.Row, v View) {
	col, ok := types.FindColumn(v.Columns, v.Sort.ColumnID)
	if !ok {
		col = types.Column{ID: v.Sort.ColumnID, Type: types.ColumnText}
	}

	var cmp func(a, b types.Row) int
	switch {
	case col.Type == types.ColumnDate:
		cmp = func(a, b types.Row) int { return compareDates(a.Get(col.ID), b.Get(col.ID)) }
	case col.Monetary():
		cmp = func(a, b types.Row) int {
			return compareMoney(monetarySource(a, col), monetarySource(b, col), v.Converter, v.Rates)
		}
	default:
		coll := collate.New(language.English)
		cmp = func(a, b types.Row) int { return compareText(a.Get(col.ID), b.Get(col.ID), coll) }
	}

	desc := v.Sort.Direction == types.SortDesc
	sort.SliceStable(rows, func(i, j int) bool {
		c := cmp(rows[i], rows[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// monetarySource returns the amount a monetary column is ordered by. The
// converted column is ordered by the prize it derives from.
func monetarySource(r types.Row, col types.Column) string {
	if col.ID == types.ColConverted {
		return r.Get(types.ColPrize)
	}
	return r.Get(col.ID)
}

func compareMoney(a, b string, conv currency.Converter, rates types.RateTable) int {
	av, aok := conv.Normalized(a, rates)
	bv, bok := conv.Normalized(b, rates)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return compareFloat(av, bv)
}

func compareDates(a, b string) int {
	at, aok := deadline.Parse(a)
	bt, bok := deadline.Parse(b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return at.Compare(bt)
}

func compareText(a, b string, coll *collate.Collator) int {
	an, aok := numeric(a)
	bn, bok := numeric(b)
	switch {
	case aok && bok:
		return compareFloat(an, bn)
	case aok:
		return -1
	case bok:
		return 1
	}
	return coll.CompareString(a, b)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var (
	numericPattern = regexp.MustCompile(`^-?[\d.,]+$`)
	currencyTokens = strings.NewReplacer(
		"$", "", "€", "", "£", "", "₹", "",
		"USD", "", "EUR", "", "GBP", "", "AUD", "", "CAD", "", "INR", "", "IDR", "",
		"RP", "", "RS", "",
	)
)

// numeric parses text that looks like a number once currency symbols and
// codes are removed, e.g. "$1,200" or "1.5".
func numeric(s string) (float64, bool) {
	t := strings.TrimSpace(currencyTokens.Replace(strings.ToUpper(s)))
	t = strings.ReplaceAll(t, " ", "")
	if !numericPattern.MatchString(t) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(t, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NextSort returns the directive after a header click on columnID: the same
// column flips direction, any other column starts ascending.
func NextSort(current *types.SortConfig, columnID string) types.SortConfig {
	if current != nil && current.ColumnID == columnID && current.Direction == types.SortAsc {
		return types.SortConfig{ColumnID: columnID, Direction: types.SortDesc}
	}
	return types.SortConfig{ColumnID: columnID, Direction: types.SortAsc}
}

// ToggleQuickFilter sets the filter for colID to value, or clears it when it
// already equals value. It returns a new map.
func ToggleQuickFilter(filters types.Filters, colID, value string) types.Filters {
	out := filters.Clone()
	if out[colID] == value {
		delete(out, colID)
		return out
	}
	out[colID] = value
	return out
}

// ActiveProjects returns copies of the unarchived rows whose status is
// Active.
func ActiveProjects(rows []types.Row) []types.Row {
	var out []types.Row
	for _, r := range rows {
		if !r.Archived && r.Get(types.ColStatus) == string(types.StatusActive) {
			out = append(out, r.Clone())
		}
	}
	return out
}
