package ledger

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// ConfirmKind names the destructive action a confirmation guards.
type ConfirmKind string

// Confirmation kinds.
const (
	ConfirmDeleteRow    ConfirmKind = "delete-row"
	ConfirmDeleteColumn ConfirmKind = "delete-column"
)

// ConfirmRequest is the single pending confirmation. At most one is open at
// a time; Confirm consumes it and Cancel discards it.
type ConfirmRequest struct {
	Kind     ConfirmKind `json:"kind"`
	TargetID string      `json:"target_id"`
	Title    string      `json:"title"`
	Message  string      `json:"message"`
}

// RequestDeleteRow opens the confirmation for deleting a row.
func (l *Ledger) RequestDeleteRow(id string) (ConfirmRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ConfirmRequest{}, types.ErrClosed
	}
	if l.indexLocked(id) < 0 {
		return ConfirmRequest{}, fmt.Errorf("row %s: %w", id, types.ErrNotFound)
	}
	return l.openLocked(ConfirmRequest{
		Kind:     ConfirmDeleteRow,
		TargetID: id,
		Title:    "Delete Row",
		Message:  "Are you sure you want to delete this row? This action cannot be undone.",
	})
}

// RequestDeleteColumn opens the confirmation for deleting a column.
func (l *Ledger) RequestDeleteColumn(id string) (ConfirmRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ConfirmRequest{}, types.ErrClosed
	}
	i := l.columnIndexLocked(id)
	if i < 0 {
		return ConfirmRequest{}, fmt.Errorf("column %s: %w", id, types.ErrColumnNotFound)
	}
	name := l.columns[i].Title
	if name == "" {
		name = "this column"
	}
	return l.openLocked(ConfirmRequest{
		Kind:     ConfirmDeleteColumn,
		TargetID: id,
		Title:    "Delete Column",
		Message:  fmt.Sprintf("Are you sure you want to delete %q? All data in this column will be lost. This action cannot be undone.", name),
	})
}

func (l *Ledger) openLocked(req ConfirmRequest) (ConfirmRequest, error) {
	if l.dialog != nil {
		return ConfirmRequest{}, types.ErrDialogBusy
	}
	l.dialog = &req
	return req, nil
}

// Dialog returns the pending confirmation, if any.
func (l *Ledger) Dialog() (ConfirmRequest, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dialog == nil {
		return ConfirmRequest{}, false
	}
	return *l.dialog, true
}

// Cancel discards the pending confirmation. It reports whether one was open.
func (l *Ledger) Cancel() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	open := l.dialog != nil
	l.dialog = nil
	return open
}

// Confirm consumes the pending confirmation and runs its action.
func (l *Ledger) Confirm(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return types.ErrClosed
	}
	req := l.dialog
	l.dialog = nil
	l.mu.Unlock()

	if req == nil {
		return types.ErrNoDialog
	}
	switch req.Kind {
	case ConfirmDeleteRow:
		return l.deleteRow(ctx, req.TargetID)
	case ConfirmDeleteColumn:
		return l.deleteColumn(ctx, req.TargetID)
	}
	return fmt.Errorf("unknown confirmation %q", req.Kind)
}
