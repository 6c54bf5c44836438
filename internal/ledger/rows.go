package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/gigboard/internal/deadline"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// AddRow inserts a row with the default status and category. The row is
// added locally, at the front, only once the store has confirmed it.
func (l *Ledger) AddRow(ctx context.Context) (types.Row, error) {
	if err := l.checkOpen(); err != nil {
		return types.Row{}, err
	}

	rctx, cancel := l.remote(ctx)
	rec, err := l.store.Insert(rctx, types.NewRecord())
	cancel()
	if err != nil {
		return types.Row{}, l.fail(OpAddRow, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return types.Row{}, types.ErrClosed
	}
	row := types.RowFromRecord(rec)
	l.shapeLocked(&row)
	l.rows = append([]types.Row{row}, l.rows...)
	l.log.Debug().Str("row", row.ID).Msg("row added")
	return row.Clone(), nil
}

// ToggleArchive flips the archived flag of a row. The flip is applied at
// once and reverted if the store rejects it.
func (l *Ledger) ToggleArchive(ctx context.Context, id string) error {
	unlock := l.locks.lock(id)
	defer unlock()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return types.ErrClosed
	}
	i := l.indexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("row %s: %w", id, types.ErrNotFound)
	}
	archived := !l.rows[i].Archived
	l.rows[i].Archived = archived
	l.mu.Unlock()

	rctx, cancel := l.remote(ctx)
	err := l.store.Update(rctx, id, types.RecordPatch{Archived: &archived})
	cancel()
	if err == nil {
		return nil
	}

	l.mu.Lock()
	if !l.closed {
		if i := l.indexLocked(id); i >= 0 {
			l.rows[i].Archived = !archived
		}
	}
	l.mu.Unlock()
	return l.fail(OpArchive, err)
}

// UpdateCell sets one cell. The value is validated against the column type,
// applied locally at once together with the derived conversion, and then
// written to the store: core columns as their named field, any other column
// as the row's whole metadata blob. If the store rejects the write, the cell
// and the derived value are restored.
func (l *Ledger) UpdateCell(ctx context.Context, rowID, colID, value string) error {
	unlock := l.locks.lock(rowID)
	defer unlock()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return types.ErrClosed
	}
	col, ok := types.FindColumn(l.columns, colID)
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("column %s: %w", colID, types.ErrColumnNotFound)
	}
	field := types.FieldFor(colID)
	if field.Kind == types.FieldDerived {
		l.mu.Unlock()
		return fmt.Errorf("column %s: %w", colID, types.ErrDerivedColumn)
	}
	if err := validate(col, value); err != nil {
		l.mu.Unlock()
		return err
	}
	i := l.indexLocked(rowID)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("row %s: %w", rowID, types.ErrNotFound)
	}

	row := &l.rows[i]
	prev := row.Get(colID)
	prevConverted, hadConverted := row.Values[types.ColConverted]
	row.Set(colID, value)
	if colID == types.ColPrize && l.rates != nil {
		l.deriveLocked(row)
	}

	var patch types.RecordPatch
	switch field.Kind {
	case types.FieldCore:
		patch = field.Patch(value)
	case types.FieldMetadata:
		patch = types.RecordPatch{Metadata: types.MetadataFromValues(row.Values)}
	}
	l.mu.Unlock()

	rctx, cancel := l.remote(ctx)
	err := l.store.Update(rctx, rowID, patch)
	cancel()
	if err == nil {
		return nil
	}

	l.mu.Lock()
	if !l.closed {
		if i := l.indexLocked(rowID); i >= 0 {
			row := &l.rows[i]
			if _, ok := row.Values[colID]; ok {
				row.Set(colID, prev)
			}
			if hadConverted {
				row.Set(types.ColConverted, prevConverted)
			}
		}
	}
	l.mu.Unlock()
	return l.fail(OpUpdateCell, err)
}

// SetDeadline sets the deadline of a row to days and hours after now.
func (l *Ledger) SetDeadline(ctx context.Context, rowID string, now time.Time, days, hours int) error {
	return l.UpdateCell(ctx, rowID, types.ColDeadline, deadline.FromNow(now, days, hours))
}

func (l *Ledger) deleteRow(ctx context.Context, id string) error {
	unlock := l.locks.lock(id)
	defer unlock()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return types.ErrClosed
	}
	if l.indexLocked(id) < 0 {
		l.mu.Unlock()
		return fmt.Errorf("row %s: %w", id, types.ErrNotFound)
	}
	l.mu.Unlock()

	rctx, cancel := l.remote(ctx)
	err := l.store.Delete(rctx, id)
	cancel()
	if err != nil {
		return l.fail(OpDeleteRow, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return types.ErrClosed
	}
	if i := l.indexLocked(id); i >= 0 {
		l.rows = append(l.rows[:i], l.rows[i+1:]...)
	}
	if l.editing != nil && l.editing.RowID == id {
		l.editing = nil
	}
	l.log.Debug().Str("row", id).Msg("row deleted")
	return nil
}

// validate checks value against the column type.
func validate(col types.Column, value string) error {
	switch col.Type {
	case types.ColumnStatus:
		if !types.IsValidStatus(value) {
			return fmt.Errorf("%w: %q", types.ErrInvalidStatus, value)
		}
	case types.ColumnCategory:
		if !types.IsValidCategory(value) {
			return fmt.Errorf("%w: %q", types.ErrInvalidCategory, value)
		}
	case types.ColumnDate:
		if !deadline.Valid(value) {
			return fmt.Errorf("%w: %q", types.ErrInvalidDate, value)
		}
	}
	return nil
}
