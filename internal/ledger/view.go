package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/gigboard/internal/grid"
	"github.com/mesh-intelligence/gigboard/internal/snapshot"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// SetFilter sets the substring filter of a column. An empty pattern removes
// it.
func (l *Ledger) SetFilter(colID, pattern string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pattern == "" {
		delete(l.filters, colID)
		return
	}
	l.filters[colID] = pattern
}

// QuickFilter sets the filter of a column to value, or clears it when it is
// already set to value.
func (l *Ledger) QuickFilter(colID, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filters = grid.ToggleQuickFilter(l.filters, colID, value)
}

// ClearFilters removes every filter.
func (l *Ledger) ClearFilters() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filters = types.Filters{}
}

// Filters returns a copy of the active filters.
func (l *Ledger) Filters() types.Filters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filters.Clone()
}

// Sort advances the sort directive for a column header: the same column
// flips direction, another column starts ascending.
func (l *Ledger) Sort(colID string) types.SortConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := grid.NextSort(l.sort, colID)
	l.sort = &next
	return next
}

// SetSort replaces the sort directive; nil clears it.
func (l *Ledger) SetSort(cfg *types.SortConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cfg == nil {
		l.sort = nil
		return
	}
	c := *cfg
	l.sort = &c
}

// SetShowArchived selects the archived view or the active view.
func (l *Ledger) SetShowArchived(show bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.showArchived = show
}

// Visible returns the rows of the current view, filtered and sorted.
func (l *Ledger) Visible() []types.Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	var s *types.SortConfig
	if l.sort != nil {
		c := *l.sort
		s = &c
	}
	return grid.VisibleRows(l.rows, grid.View{
		Columns:      l.columns,
		Filters:      l.filters,
		Sort:         s,
		ShowArchived: l.showArchived,
		Converter:    l.conv,
		Rates:        l.rates,
	})
}

// ActiveProjects returns the unarchived rows whose status is Active.
func (l *Ledger) ActiveProjects() []types.Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	return grid.ActiveProjects(l.rows)
}

// SetRates replaces the rate table. Call Recalculate to refresh derived
// values.
func (l *Ledger) SetRates(rates types.RateTable) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rates = rates
}

// Rates returns the current rate table, nil when unavailable.
func (l *Ledger) Rates() types.RateTable {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rates
}

// Recalculate recomputes the derived value of every row.
func (l *Ledger) Recalculate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.rows {
		l.deriveLocked(&l.rows[i])
	}
}

// Export returns the whole board stamped with now.
func (l *Ledger) Export(now time.Time) snapshot.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return snapshot.Snapshot{
		Columns:    types.CloneColumns(l.columns),
		Rows:       types.CloneRows(l.rows),
		ExportDate: now.UTC(),
	}
}

// Import replaces the columns and rows wholesale with those of s. Nothing
// is written to the row store or to the saved column layout, so the import
// lasts as long as the ledger.
func (l *Ledger) Import(ctx context.Context, s snapshot.Snapshot) error {
	for _, c := range s.Columns {
		if types.IsReservedColumnID(c.ID) {
			return fmt.Errorf("%w: column id %q is reserved", types.ErrInvalidImport, c.ID)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return types.ErrClosed
	}
	l.columns = types.CloneColumns(s.Columns)
	if l.columns == nil {
		l.columns = []types.Column{}
	}
	rows := types.CloneRows(s.Rows)
	for i := range rows {
		for _, c := range l.columns {
			if _, ok := rows[i].Values[c.ID]; !ok {
				rows[i].Set(c.ID, "")
			}
		}
	}
	l.rows = rows
	l.editing = nil
	l.dialog = nil
	l.log.Info().Int("rows", len(rows)).Int("columns", len(l.columns)).Msg("board imported")
	return nil
}
