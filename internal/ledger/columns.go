package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// AddColumn appends a text column titled DefaultColumnTitle and gives every
// row an empty value for it. Nothing is written to the row store; values
// reach it with the next edit of the row's metadata.
func (l *Ledger) AddColumn(ctx context.Context) (types.Column, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return types.Column{}, types.ErrClosed
	}
	col := types.Column{ID: "col_" + generateID(), Title: types.DefaultColumnTitle, Type: types.ColumnText}
	l.columns = append(l.columns, col)
	for i := range l.rows {
		l.rows[i].Set(col.ID, "")
	}
	l.mu.Unlock()

	l.saveLayout(ctx)
	return col, nil
}

// UpdateHeader renames a column.
func (l *Ledger) UpdateHeader(ctx context.Context, id, title string) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return types.ErrClosed
	}
	i := l.columnIndexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("column %s: %w", id, types.ErrColumnNotFound)
	}
	l.columns[i].Title = title
	l.mu.Unlock()

	l.saveLayout(ctx)
	return nil
}

// deleteColumn removes a column from the layout and its value from every
// row. Metadata columns are also scrubbed from each row's stored metadata;
// core columns are removed from the layout only.
func (l *Ledger) deleteColumn(ctx context.Context, id string) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return types.ErrClosed
	}
	i := l.columnIndexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("column %s: %w", id, types.ErrColumnNotFound)
	}
	l.columns = append(l.columns[:i:i], l.columns[i+1:]...)

	var scrub []string
	for r := range l.rows {
		delete(l.rows[r].Values, id)
		scrub = append(scrub, l.rows[r].ID)
	}
	if types.FieldFor(id).Kind != types.FieldMetadata {
		scrub = nil
	}
	if l.editing != nil && l.editing.ColID == id {
		l.editing = nil
	}
	delete(l.filters, id)
	if l.sort != nil && l.sort.ColumnID == id {
		l.sort = nil
	}
	l.mu.Unlock()

	l.log.Debug().Str("column", id).Int("scrub", len(scrub)).Msg("column deleted")
	l.saveLayout(ctx)

	var errs []error
	for _, rowID := range scrub {
		if err := l.scrubMetadata(ctx, rowID); err != nil {
			errs = append(errs, fmt.Errorf("row %s: %w", rowID, err))
		}
	}
	if len(errs) > 0 {
		return l.fail(OpRemoveColumn, errors.Join(errs...))
	}
	return nil
}

// scrubMetadata rewrites the stored metadata of a row from its local values.
func (l *Ledger) scrubMetadata(ctx context.Context, rowID string) error {
	unlock := l.locks.lock(rowID)
	defer unlock()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return types.ErrClosed
	}
	i := l.indexLocked(rowID)
	if i < 0 {
		l.mu.Unlock()
		return nil
	}
	meta := types.MetadataFromValues(l.rows[i].Values)
	l.mu.Unlock()

	rctx, cancel := l.remote(ctx)
	defer cancel()
	return l.store.Update(rctx, rowID, types.RecordPatch{Metadata: meta})
}

// generateID returns a UUID v7, falling back to v4.
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
