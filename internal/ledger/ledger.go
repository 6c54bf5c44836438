// Package ledger owns the board: the column layout, the rows and the view
// state. Every mutation goes through a Ledger, which applies it to a row
// store and keeps local state consistent with the outcome.
//
// A Ledger is safe for concurrent use. Its mutex is never held across a
// remote call; mutations of the same row are serialized by a per-row lock.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/gigboard/internal/currency"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 15 * time.Second

// Notifier receives user-visible failure reports. op is a short description
// of the failed action, e.g. "adding row".
type Notifier interface {
	Notify(op string, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(op string, err error)

// Notify calls f(op, err).
func (f NotifierFunc) Notify(op string, err error) { f(op, err) }

// LayoutStore persists the column layout between sessions.
type LayoutStore interface {
	// LoadLayout returns the saved layout; ok is false when none was saved.
	LoadLayout(ctx context.Context) (columns []types.Column, ok bool, err error)
	SaveLayout(ctx context.Context, columns []types.Column) error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithNotifier sets the receiver of user-visible failures.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithConverter sets the currency converter used for the derived column.
func WithConverter(c currency.Converter) Option {
	return func(l *Ledger) { l.conv = c }
}

// WithRates sets the initial rate table.
func WithRates(rates types.RateTable) Option {
	return func(l *Ledger) { l.rates = rates }
}

// WithTimeout bounds each remote call. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLayout persists column changes to s and restores them on Load.
func WithLayout(s LayoutStore) Option {
	return func(l *Ledger) { l.layout = s }
}

// Ledger is the application state of one signed-in session.
type Ledger struct {
	store    types.RowStore
	log      zerolog.Logger
	notifier Notifier
	conv     currency.Converter
	timeout  time.Duration
	layout   LayoutStore

	locks    *rowLocks
	layoutMu sync.Mutex // serializes layout saves

	mu           sync.Mutex
	closed       bool
	columns      []types.Column
	rows         []types.Row
	rates        types.RateTable
	filters      types.Filters
	sort         *types.SortConfig
	showArchived bool
	editing      *types.EditingCell
	dialog       *ConfirmRequest
}

// New returns an empty Ledger with the default column layout. Call Load to
// fetch the rows.
func New(store types.RowStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		log:      zerolog.Nop(),
		notifier: NotifierFunc(func(string, error) {}),
		conv:     currency.Default(),
		timeout:  DefaultTimeout,
		locks:    newRowLocks(),
		columns:  types.DefaultColumns(),
		filters:  types.Filters{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces local state with the store's records. Metadata keys that no
// column knows become text columns titled by their key.
func (l *Ledger) Load(ctx context.Context) error {
	if err := l.checkOpen(); err != nil {
		return err
	}

	rctx, cancel := l.remote(ctx)
	recs, err := l.store.List(rctx)
	cancel()
	if err != nil {
		return l.fail(OpLoad, err)
	}

	columns := types.DefaultColumns()
	if l.layout != nil {
		saved, ok, err := l.layout.LoadLayout(ctx)
		switch {
		case err != nil:
			l.log.Warn().Err(err).Msg("column layout unavailable, using defaults")
		case ok:
			columns = saved
		}
	}
	columns = inferColumns(columns, recs)

	rows := make([]types.Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, types.RowFromRecord(rec))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return types.ErrClosed
	}
	l.columns = columns
	for i := range rows {
		l.shapeLocked(&rows[i])
	}
	l.rows = rows
	l.editing = nil
	l.log.Debug().Int("rows", len(rows)).Int("columns", len(columns)).Msg("board loaded")
	return nil
}

// Close disposes the ledger. Remote calls still in flight complete without
// touching state, and later calls return types.ErrClosed. Close is
// idempotent.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.dialog = nil
	l.editing = nil
	return nil
}

// Rows returns a copy of every row, archived or not, in board order.
func (l *Ledger) Rows() []types.Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	return types.CloneRows(l.rows)
}

// Row returns a copy of the row with the given ID.
func (l *Ledger) Row(id string) (types.Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return types.Row{}, fmt.Errorf("row %s: %w", id, types.ErrNotFound)
	}
	return l.rows[i].Clone(), nil
}

// Columns returns a copy of the column layout.
func (l *Ledger) Columns() []types.Column {
	l.mu.Lock()
	defer l.mu.Unlock()
	return types.CloneColumns(l.columns)
}

// Converter returns the converter used for the derived column.
func (l *Ledger) Converter() currency.Converter {
	return l.conv
}

func (l *Ledger) checkOpen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return types.ErrClosed
	}
	return nil
}

func (l *Ledger) remote(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, l.timeout)
}

// Operation names passed to the Notifier.
const (
	OpLoad         = "loading board"
	OpAddRow       = "adding row"
	OpArchive      = "archiving row"
	OpUpdateCell   = "updating cell"
	OpDeleteRow    = "deleting row"
	OpRemoveColumn = "removing column data"
)

// RolledBack reports whether a failure of op undid a local change. Other
// operations apply nothing locally until the store confirms them.
func RolledBack(op string) bool {
	return op == OpArchive || op == OpUpdateCell
}

// fail reports a remote failure to the notifier and returns it wrapped.
// Failures arriving after Close are dropped.
func (l *Ledger) fail(op string, err error) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return types.ErrClosed
	}
	l.log.Error().Err(err).Str("op", op).Msg("remote call failed")
	l.notifier.Notify(op, err)
	return fmt.Errorf("%s: %w", op, err)
}

func (l *Ledger) indexLocked(id string) int {
	for i := range l.rows {
		if l.rows[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) columnIndexLocked(id string) int {
	for i := range l.columns {
		if l.columns[i].ID == id {
			return i
		}
	}
	return -1
}

// shapeLocked makes row hold exactly one value per column and refreshes its
// derived value.
func (l *Ledger) shapeLocked(row *types.Row) {
	known := make(map[string]bool, len(l.columns))
	for _, c := range l.columns {
		known[c.ID] = true
		if _, ok := row.Values[c.ID]; !ok {
			row.Set(c.ID, "")
		}
	}
	for k := range row.Values {
		if !known[k] {
			delete(row.Values, k)
		}
	}
	l.deriveLocked(row)
}

// deriveLocked recomputes the converted value of row from its prize.
func (l *Ledger) deriveLocked(row *types.Row) {
	if l.columnIndexLocked(types.ColConverted) < 0 {
		return
	}
	row.Set(types.ColConverted, l.conv.Convert(row.Get(types.ColPrize), l.rates))
}

// inferColumns appends a text column for every metadata key of recs that no
// column in base describes. Keys are taken in record order, sorted within a
// record.
func inferColumns(base []types.Column, recs []types.Record) []types.Column {
	columns := types.CloneColumns(base)
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c.ID] = true
	}
	for _, rec := range recs {
		keys := make([]string, 0, len(rec.Metadata))
		for k := range rec.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if seen[k] || types.IsCoreColumn(k) || types.IsReservedColumnID(k) {
				continue
			}
			seen[k] = true
			columns = append(columns, types.Column{ID: k, Title: k, Type: types.ColumnText})
		}
	}
	return columns
}

// saveLayout persists the current layout. Failures are logged; the layout
// is a convenience and never blocks a mutation.
func (l *Ledger) saveLayout(ctx context.Context) {
	if l.layout == nil {
		return
	}
	l.layoutMu.Lock()
	defer l.layoutMu.Unlock()

	l.mu.Lock()
	columns := types.CloneColumns(l.columns)
	l.mu.Unlock()

	rctx, cancel := l.remote(ctx)
	defer cancel()
	if err := l.layout.SaveLayout(rctx, columns); err != nil {
		l.log.Warn().Err(err).Msg("saving column layout")
	}
}

// rowLocks hands out one mutex per row ID, dropping entries no one holds.
type rowLocks struct {
	mu sync.Mutex
	m  map[string]*rowLock
}

type rowLock struct {
	sync.Mutex
	refs int
}

func newRowLocks() *rowLocks {
	return &rowLocks{m: make(map[string]*rowLock)}
}

// lock acquires the lock for id and returns its release function.
func (k *rowLocks) lock(id string) func() {
	k.mu.Lock()
	rl, ok := k.m[id]
	if !ok {
		rl = &rowLock{}
		k.m[id] = rl
	}
	rl.refs++
	k.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		k.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(k.m, id)
		}
		k.mu.Unlock()
	}
}
