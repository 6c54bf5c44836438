// Package kv is the local key-value persistence used when no row-store
// backend is configured, and for small client state such as the column
// layout and the saved session.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// Fixed keys.
const (
	KeyColumns = "gigboard.columns"
	KeyRows    = "gigboard.rows"
	KeySession = "gigboard.session"
)

// Store is a byte-valued key-value store. Get returns types.ErrNotFound for
// a missing key; Delete of a missing key succeeds.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes the value at key into v. It reports false when the key is
// missing.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// Layout persists the column layout under KeyColumns.
type Layout struct {
	Store Store
}

// LoadLayout returns the saved columns.
func (l Layout) LoadLayout(ctx context.Context) ([]types.Column, bool, error) {
	var columns []types.Column
	ok, err := GetJSON(ctx, l.Store, KeyColumns, &columns)
	if err != nil || !ok {
		return nil, false, err
	}
	if columns == nil {
		columns = []types.Column{}
	}
	return columns, true, nil
}

// SaveLayout stores columns.
func (l Layout) SaveLayout(ctx context.Context, columns []types.Column) error {
	if columns == nil {
		columns = []types.Column{}
	}
	return SetJSON(ctx, l.Store, KeyColumns, columns)
}
