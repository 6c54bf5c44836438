package kv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// RowStore keeps every record in one list under KeyRows. It backs the local
// mode, where the board lives on this machine only.
type RowStore struct {
	store Store
	now   func() time.Time
	mu    sync.Mutex
}

var _ types.RowStore = (*RowStore)(nil)

// NewRowStore returns a RowStore over s.
func NewRowStore(s Store) *RowStore {
	return &RowStore{store: s, now: time.Now}
}

func (r *RowStore) load(ctx context.Context) ([]types.Record, error) {
	var recs []types.Record
	if _, err := GetJSON(ctx, r.store, KeyRows, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *RowStore) save(ctx context.Context, recs []types.Record) error {
	if recs == nil {
		recs = []types.Record{}
	}
	return SetJSON(ctx, r.store, KeyRows, recs)
}

// List returns every record, newest first.
func (r *RowStore) List(ctx context.Context) ([]types.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Insert stores rec under a new ID.
func (r *RowStore) Insert(ctx context.Context, rec types.Record) (types.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs, err := r.load(ctx)
	if err != nil {
		return types.Record{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return types.Record{}, fmt.Errorf("generating id: %w", err)
	}
	rec.ID = id.String()
	rec.CreatedAt = r.now().UTC()
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	if err := r.save(ctx, append([]types.Record{rec}, recs...)); err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

// Update applies patch to the record with the given ID.
func (r *RowStore) Update(ctx context.Context, id string, patch types.RecordPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs, err := r.load(ctx)
	if err != nil {
		return err
	}
	for i := range recs {
		if recs[i].ID == id {
			patch.Apply(&recs[i])
			return r.save(ctx, recs)
		}
	}
	return fmt.Errorf("record %s: %w", id, types.ErrNotFound)
}

// Delete removes the record with the given ID.
func (r *RowStore) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs, err := r.load(ctx)
	if err != nil {
		return err
	}
	for i := range recs {
		if recs[i].ID == id {
			return r.save(ctx, append(recs[:i], recs[i+1:]...))
		}
	}
	return fmt.Errorf("record %s: %w", id, types.ErrNotFound)
}
