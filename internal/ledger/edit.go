package ledger

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// BeginEdit puts one cell in edit mode. Any other cell in edit mode leaves
// it without saving.
func (l *Ledger) BeginEdit(rowID, colID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return types.ErrClosed
	}
	if l.indexLocked(rowID) < 0 {
		return fmt.Errorf("row %s: %w", rowID, types.ErrNotFound)
	}
	if l.columnIndexLocked(colID) < 0 {
		return fmt.Errorf("column %s: %w", colID, types.ErrColumnNotFound)
	}
	if types.FieldFor(colID).Kind == types.FieldDerived {
		return fmt.Errorf("column %s: %w", colID, types.ErrDerivedColumn)
	}
	l.editing = &types.EditingCell{RowID: rowID, ColID: colID}
	return nil
}

// CommitEdit leaves edit mode and stores value in the edited cell.
func (l *Ledger) CommitEdit(ctx context.Context, value string) error {
	l.mu.Lock()
	cell := l.editing
	l.editing = nil
	l.mu.Unlock()

	if cell == nil {
		return types.ErrNotEditing
	}
	return l.UpdateCell(ctx, cell.RowID, cell.ColID, value)
}

// CancelEdit leaves edit mode without saving.
func (l *Ledger) CancelEdit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editing = nil
}

// Editing returns the cell in edit mode, if any.
func (l *Ledger) Editing() (types.EditingCell, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.editing == nil {
		return types.EditingCell{}, false
	}
	return *l.editing, true
}
