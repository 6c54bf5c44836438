package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gigboard/internal/snapshot"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

var errRemote = errors.New("remote rejected")

// fakeStore is an in-memory RowStore with failure injection.
type fakeStore struct {
	mu      sync.Mutex
	recs    []types.Record // newest first
	next    int
	patches []types.RecordPatch

	failList, failInsert, failUpdate, failDelete error

	// onUpdate, when set, runs before an update is applied.
	onUpdate func(id string)
}

var _ types.RowStore = (*fakeStore)(nil)

func (s *fakeStore) List(ctx context.Context) ([]types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	out := make([]types.Record, len(s.recs))
	copy(out, s.recs)
	return out, nil
}

func (s *fakeStore) Insert(ctx context.Context, rec types.Record) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return types.Record{}, s.failInsert
	}
	s.next++
	rec.ID = fmt.Sprintf("r%d", s.next)
	rec.CreatedAt = time.Now()
	s.recs = append([]types.Record{rec}, s.recs...)
	return rec, nil
}

func (s *fakeStore) Update(ctx context.Context, id string, patch types.RecordPatch) error {
	if s.onUpdate != nil {
		s.onUpdate(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate != nil {
		return s.failUpdate
	}
	for i := range s.recs {
		if s.recs[i].ID == id {
			patch.Apply(&s.recs[i])
			s.patches = append(s.patches, patch)
			return nil
		}
	}
	return types.ErrNotFound
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	for i := range s.recs {
		if s.recs[i].ID == id {
			s.recs = append(s.recs[:i], s.recs[i+1:]...)
			return nil
		}
	}
	return types.ErrNotFound
}

func (s *fakeStore) record(t *testing.T, id string) types.Record {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("record %s not stored", id)
	return types.Record{}
}

type recorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *recorder) Notify(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

func newLedger(t *testing.T, store *fakeStore, opts ...Option) (*Ledger, *recorder) {
	t.Helper()
	rec := &recorder{}
	l := New(store, append([]Option{WithNotifier(rec)}, opts...)...)
	require.NoError(t, l.Load(context.Background()))
	t.Cleanup(func() { _ = l.Close() })
	return l, rec
}

func TestLoad(t *testing.T) {
	store := &fakeStore{recs: []types.Record{
		{ID: "new", Name: "Logo", Prize: "$10", Status: "Active", Category: "Contest",
			Metadata: map[string]any{"col_client": "ACME", "col_hours": 12.0, types.ColName: "shadow"}},
		{ID: "old", Name: "API", Status: "Watchlisted", Category: "Project"},
	}}
	l, _ := newLedger(t, store, WithRates(types.RateTable{"USD": 1, "IDR": 15000}))

	cols := l.Columns()
	require.Len(t, cols, len(types.DefaultColumns())+2)
	assert.Equal(t, types.Column{ID: "col_client", Title: "col_client", Type: types.ColumnText}, cols[len(cols)-2])
	assert.Equal(t, "col_hours", cols[len(cols)-1].ID)

	rows := l.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "new", rows[0].ID, "store order kept")
	assert.Equal(t, "Logo", rows[0].Get(types.ColName), "metadata cannot shadow core fields")
	assert.Equal(t, "12", rows[0].Get("col_hours"))
	assert.Equal(t, "Rp 150.000", rows[0].Get(types.ColConverted))
	for _, r := range rows {
		for _, c := range cols {
			_, ok := r.Values[c.ID]
			assert.True(t, ok, "row %s lacks %s", r.ID, c.ID)
		}
	}
}

func TestLoadFailure(t *testing.T) {
	store := &fakeStore{failList: errRemote}
	rec := &recorder{}
	l := New(store, WithNotifier(rec))

	err := l.Load(context.Background())
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, []string{"loading board"}, rec.calls())
	assert.Empty(t, l.Rows())
}

func TestAddRow(t *testing.T) {
	store := &fakeStore{recs: []types.Record{{ID: "old", Status: "Active"}}}
	l, _ := newLedger(t, store)

	row, err := l.AddRow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", row.ID)
	assert.Equal(t, "Watchlisted", row.Get(types.ColStatus))
	assert.Equal(t, "Project", row.Get(types.ColCategory))
	assert.Equal(t, "", row.Get(types.ColName))

	rows := l.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0].ID, "new rows go first")
}

func TestAddRowFailureLeavesStateUnchanged(t *testing.T) {
	store := &fakeStore{}
	l, rec := newLedger(t, store)
	store.failInsert = errRemote

	_, err := l.AddRow(context.Background())
	assert.ErrorIs(t, err, errRemote)
	assert.Empty(t, l.Rows())
	assert.Equal(t, []string{"adding row"}, rec.calls())
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l, rec := newLedger(t, store, WithRates(types.RateTable{"USD": 1, "IDR": 15500}))

	row, err := l.AddRow(ctx)
	require.NoError(t, err)

	require.NoError(t, l.UpdateCell(ctx, row.ID, types.ColPrize, "$500"))
	got, err := l.Row(row.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rp 7.750.000", got.Get(types.ColConverted))
	assert.Equal(t, "$500", store.record(t, row.ID).Prize)

	require.NoError(t, l.ToggleArchive(ctx, row.ID))
	assert.Empty(t, l.Visible())
	l.SetShowArchived(true)
	require.Len(t, l.Visible(), 1)
	assert.True(t, store.record(t, row.ID).Archived)
	l.SetShowArchived(false)

	col, err := l.AddColumn(ctx)
	require.NoError(t, err)
	require.NoError(t, l.UpdateCell(ctx, row.ID, col.ID, "ACME"))
	assert.Equal(t, "ACME", store.record(t, row.ID).Metadata[col.ID])

	_, err = l.RequestDeleteColumn(col.ID)
	require.NoError(t, err)
	require.NoError(t, l.Confirm(ctx))

	_, ok := types.FindColumn(l.Columns(), col.ID)
	assert.False(t, ok)
	for _, r := range l.Rows() {
		assert.NotContains(t, r.Values, col.ID)
	}
	assert.NotContains(t, store.record(t, row.ID).Metadata, col.ID, "metadata scrubbed remotely")
	assert.Empty(t, rec.calls())
}

func TestUpdateCellWritesMappedField(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{recs: []types.Record{{ID: "a", Status: "Active", Metadata: map[string]any{"col_x": "1"}}}}
	l, _ := newLedger(t, store)

	require.NoError(t, l.UpdateCell(ctx, "a", types.ColStatus, "Submitted"))
	require.NoError(t, l.UpdateCell(ctx, "a", "col_x", "2"))

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.patches, 2)
	require.NotNil(t, store.patches[0].Status)
	assert.Equal(t, "Submitted", *store.patches[0].Status)
	assert.Nil(t, store.patches[0].Metadata)
	assert.Equal(t, map[string]any{"col_x": "2"}, store.patches[1].Metadata)
	assert.Nil(t, store.patches[1].Status)
}

// Cell edits roll back on a rejected write, like archive toggles. Earlier
// versions left the local value diverged from the store.
func TestUpdateCellRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{recs: []types.Record{{ID: "a", Prize: "$10"}}}
	l, rec := newLedger(t, store, WithRates(types.RateTable{"USD": 1, "IDR": 15000}))
	store.failUpdate = errRemote

	err := l.UpdateCell(ctx, "a", types.ColPrize, "$20")
	assert.ErrorIs(t, err, errRemote)

	row, err := l.Row("a")
	require.NoError(t, err)
	assert.Equal(t, "$10", row.Get(types.ColPrize))
	assert.Equal(t, "Rp 150.000", row.Get(types.ColConverted))
	assert.Equal(t, []string{"updating cell"}, rec.calls())
}

func TestUpdateCellValidation(t *testing.T) {
	store := &fakeStore{recs: []types.Record{{ID: "a"}}}
	l, rec := newLedger(t, store)

	tests := []struct {
		name  string
		row   string
		col   string
		value string
		want  error
	}{
		{"bad status", "a", types.ColStatus, "Pending", types.ErrInvalidStatus},
		{"bad category", "a", types.ColCategory, "Job", types.ErrInvalidCategory},
		{"bad date", "a", types.ColDeadline, "tomorrow", types.ErrInvalidDate},
		{"derived", "a", types.ColConverted, "Rp 1", types.ErrDerivedColumn},
		{"unknown column", "a", "col_nope", "x", types.ErrColumnNotFound},
		{"unknown row", "b", types.ColName, "x", types.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.UpdateCell(context.Background(), tt.row, tt.col, tt.value)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.NoError(t, l.UpdateCell(context.Background(), "a", types.ColDeadline, ""))
	assert.Empty(t, rec.calls(), "validation errors are not remote failures")
}

func TestToggleArchiveRevertsOnFailure(t *testing.T) {
	store := &fakeStore{recs: []types.Record{{ID: "a"}}}
	l, rec := newLedger(t, store)
	store.failUpdate = errRemote

	err := l.ToggleArchive(context.Background(), "a")
	assert.ErrorIs(t, err, errRemote)
	row, _ := l.Row("a")
	assert.False(t, row.Archived)
	assert.Equal(t, []string{"archiving row"}, rec.calls())

	assert.ErrorIs(t, l.ToggleArchive(context.Background(), "zzz"), types.ErrNotFound)
}

func TestConfirmationDialog(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{recs: []types.Record{{ID: "a"}, {ID: "b"}}}
	l, rec := newLedger(t, store)

	assert.ErrorIs(t, l.Confirm(ctx), types.ErrNoDialog)

	req, err := l.RequestDeleteRow("a")
	require.NoError(t, err)
	assert.Equal(t, ConfirmDeleteRow, req.Kind)
	assert.Equal(t, "Delete Row", req.Title)

	_, err = l.RequestDeleteColumn(types.ColLink)
	assert.ErrorIs(t, err, types.ErrDialogBusy)

	open, ok := l.Dialog()
	require.True(t, ok)
	assert.Equal(t, req, open)

	assert.True(t, l.Cancel())
	assert.False(t, l.Cancel())
	assert.Len(t, l.Rows(), 2, "cancel deletes nothing")

	_, err = l.RequestDeleteRow("a")
	require.NoError(t, err)
	require.NoError(t, l.Confirm(ctx))
	assert.Len(t, l.Rows(), 1)
	_, ok = l.Dialog()
	assert.False(t, ok, "confirm consumes the dialog")

	store.failDelete = errRemote
	_, err = l.RequestDeleteRow("b")
	require.NoError(t, err)
	assert.ErrorIs(t, l.Confirm(ctx), errRemote)
	assert.Len(t, l.Rows(), 1, "failed delete keeps the row")
	assert.Equal(t, []string{"deleting row"}, rec.calls())

	_, err = l.RequestDeleteRow("zzz")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteCoreColumnIsLayoutOnly(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{recs: []types.Record{{ID: "a", Link: "https://x.test"}}}
	l, _ := newLedger(t, store)

	req, err := l.RequestDeleteColumn(types.ColLink)
	require.NoError(t, err)
	assert.Contains(t, req.Message, `"Link"`)
	require.NoError(t, l.Confirm(ctx))

	row, _ := l.Row("a")
	assert.NotContains(t, row.Values, types.ColLink)
	assert.Equal(t, "https://x.test", store.record(t, "a").Link)
	store.mu.Lock()
	assert.Empty(t, store.patches)
	store.mu.Unlock()
}

func TestEditing(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{recs: []types.Record{{ID: "a"}}}
	l, _ := newLedger(t, store)

	assert.ErrorIs(t, l.CommitEdit(ctx, "x"), types.ErrNotEditing)
	assert.ErrorIs(t, l.BeginEdit("a", types.ColConverted), types.ErrDerivedColumn)

	require.NoError(t, l.BeginEdit("a", types.ColName))
	require.NoError(t, l.BeginEdit("a", types.ColLink))
	cell, ok := l.Editing()
	require.True(t, ok)
	assert.Equal(t, types.EditingCell{RowID: "a", ColID: types.ColLink}, cell)

	require.NoError(t, l.CommitEdit(ctx, "https://gig.test"))
	_, ok = l.Editing()
	assert.False(t, ok)
	row, _ := l.Row("a")
	assert.Equal(t, "https://gig.test", row.Get(types.ColLink))
	assert.Equal(t, "", row.Get(types.ColName), "abandoned edit is not saved")

	require.NoError(t, l.BeginEdit("a", types.ColName))
	l.CancelEdit()
	_, ok = l.Editing()
	assert.False(t, ok)
}

func TestViewState(t *testing.T) {
	store := &fakeStore{recs: []types.Record{
		{ID: "a", Name: "Logo", Prize: "$80", Status: "Active"},
		{ID: "b", Name: "Site", Prize: "$9", Status: "Submitted"},
	}}
	l, _ := newLedger(t, store)

	assert.Equal(t, types.SortConfig{ColumnID: types.ColPrize, Direction: types.SortAsc}, l.Sort(types.ColPrize))
	assert.Equal(t, []string{"b", "a"}, rowIDs(l.Visible()))
	assert.Equal(t, types.SortDesc, l.Sort(types.ColPrize).Direction)
	assert.Equal(t, []string{"a", "b"}, rowIDs(l.Visible()))

	l.QuickFilter(types.ColStatus, "Active")
	assert.Equal(t, []string{"a"}, rowIDs(l.Visible()))
	l.QuickFilter(types.ColStatus, "Active")
	assert.Len(t, l.Visible(), 2)

	l.SetFilter(types.ColName, "SI")
	assert.Equal(t, []string{"b"}, rowIDs(l.Visible()))
	l.ClearFilters()
	assert.Empty(t, l.Filters())

	assert.Equal(t, []string{"a"}, rowIDs(l.ActiveProjects()))
}

func TestRecalculate(t *testing.T) {
	store := &fakeStore{recs: []types.Record{{ID: "a", Prize: "$10"}}}
	l, _ := newLedger(t, store)

	row, _ := l.Row("a")
	assert.Equal(t, "", row.Get(types.ColConverted), "no rates, no conversion")

	l.SetRates(types.RateTable{"USD": 1, "IDR": 15000})
	l.Recalculate()
	first, _ := l.Row("a")
	l.Recalculate()
	second, _ := l.Row("a")
	assert.Equal(t, "Rp 150.000", first.Get(types.ColConverted))
	assert.Equal(t, first, second)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{recs: []types.Record{
		{ID: "a", Name: "Logo", Metadata: map[string]any{"col_x": "1"}},
		{ID: "b", Name: "Site", Archived: true},
	}}
	l, _ := newLedger(t, store)
	_, err := l.AddColumn(ctx)
	require.NoError(t, err)

	snap := l.Export(time.Now())

	other, _ := newLedger(t, &fakeStore{})
	require.NoError(t, other.Import(ctx, snap))
	assert.Equal(t, l.Columns(), other.Columns())
	assert.Equal(t, l.Rows(), other.Rows())

	store.mu.Lock()
	assert.Empty(t, store.patches, "import does not sync")
	store.mu.Unlock()
}

func TestImportKeepsSavedLayout(t *testing.T) {
	ctx := context.Background()
	layout := &memLayout{}
	store := &fakeStore{recs: []types.Record{{ID: "a", Name: "Stored"}}}
	l, _ := newLedger(t, store, WithLayout(layout))

	snap := snapshot.Snapshot{
		Columns: []types.Column{{ID: types.ColName, Title: "Only", Type: types.ColumnText}},
		Rows:    []types.Row{{ID: "x", Values: map[string]string{types.ColName: "Imported"}}},
	}
	require.NoError(t, l.Import(ctx, snap))
	assert.Len(t, l.Columns(), 1)
	assert.Equal(t, []string{"x"}, rowIDs(l.Rows()))
	assert.Zero(t, layout.saves)

	reopened, _ := newLedger(t, store, WithLayout(layout))
	assert.Equal(t, types.DefaultColumns(), reopened.Columns())
	assert.Equal(t, []string{"a"}, rowIDs(reopened.Rows()))
}

func TestReservedColumnIDs(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{recs: []types.Record{
		{ID: "a", Name: "Logo", Metadata: map[string]any{"id": "b", "archived": "yes", "col_x": "1"}},
	}}
	l, _ := newLedger(t, store)
	for _, c := range l.Columns() {
		assert.False(t, types.IsReservedColumnID(c.ID), "column %q inferred", c.ID)
	}
	snap := l.Export(time.Now())

	for _, id := range []string{"id", "archived"} {
		bad := snapshot.Snapshot{
			Columns: append(types.CloneColumns(snap.Columns), types.Column{ID: id, Title: id}),
			Rows:    snap.Rows,
		}
		err := l.Import(ctx, bad)
		assert.ErrorIs(t, err, types.ErrInvalidImport, id)
	}
	assert.Equal(t, snap.Columns, l.Columns(), "rejected import leaves state alone")

	other, _ := newLedger(t, &fakeStore{})
	require.NoError(t, other.Import(ctx, snap))
	assert.Equal(t, l.Rows(), other.Rows())
}

func TestCloseDropsLateCompletions(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	store := &fakeStore{recs: []types.Record{{ID: "a"}}}
	l, rec := newLedger(t, store)
	store.onUpdate = func(string) {
		close(entered)
		<-release
	}
	store.failUpdate = errRemote

	done := make(chan error, 1)
	go func() { done <- l.ToggleArchive(context.Background(), "a") }()
	<-entered
	require.NoError(t, l.Close())
	close(release)

	assert.ErrorIs(t, <-done, types.ErrClosed)
	assert.Empty(t, rec.calls())

	_, err := l.AddRow(context.Background())
	assert.ErrorIs(t, err, types.ErrClosed)
	assert.ErrorIs(t, l.Load(context.Background()), types.ErrClosed)
}

func TestSameRowMutationsAreSerialized(t *testing.T) {
	store := &fakeStore{recs: []types.Record{{ID: "a"}}}
	l, _ := newLedger(t, store)

	var mu sync.Mutex
	inflight, peak := 0, 0
	store.onUpdate = func(string) {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inflight--
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.UpdateCell(context.Background(), "a", types.ColName, fmt.Sprintf("v%d", i)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, peak)
	row, _ := l.Row("a")
	assert.Equal(t, row.Get(types.ColName), store.record(t, "a").Name, "last local write is the last stored write")
}

func TestRemoteTimeout(t *testing.T) {
	store := &fakeStore{recs: []types.Record{{ID: "a"}}}
	l, rec := newLedger(t, store, WithTimeout(10*time.Millisecond))
	blocking := &blockingStore{fakeStore: store}
	l.store = blocking

	err := l.ToggleArchive(context.Background(), "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"archiving row"}, rec.calls())
}

// blockingStore waits for the context on every update.
type blockingStore struct {
	*fakeStore
}

func (s *blockingStore) Update(ctx context.Context, id string, patch types.RecordPatch) error {
	<-ctx.Done()
	return ctx.Err()
}

type memLayout struct {
	mu      sync.Mutex
	columns []types.Column
	saves   int
}

func (m *memLayout) LoadLayout(ctx context.Context) ([]types.Column, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.CloneColumns(m.columns), m.columns != nil, nil
}

func (m *memLayout) SaveLayout(ctx context.Context, columns []types.Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns = types.CloneColumns(columns)
	m.saves++
	return nil
}

func TestLayoutPersistence(t *testing.T) {
	ctx := context.Background()
	layout := &memLayout{}
	store := &fakeStore{recs: []types.Record{{ID: "a"}}}
	l, _ := newLedger(t, store, WithLayout(layout))

	col, err := l.AddColumn(ctx)
	require.NoError(t, err)
	require.NoError(t, l.UpdateHeader(ctx, col.ID, "Client"))
	require.NoError(t, l.UpdateHeader(ctx, types.ColName, "Gig"))
	assert.ErrorIs(t, l.UpdateHeader(ctx, "col_nope", "x"), types.ErrColumnNotFound)
	assert.Equal(t, 3, layout.saves)

	reopened, _ := newLedger(t, store, WithLayout(layout))
	cols := reopened.Columns()
	assert.Equal(t, "Gig", cols[0].Title)
	last := cols[len(cols)-1]
	assert.Equal(t, types.Column{ID: col.ID, Title: "Client", Type: types.ColumnText}, last)
	row, _ := reopened.Row("a")
	assert.Contains(t, row.Values, col.ID)
}

func rowIDs(rows []types.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestRolledBack(t *testing.T) {
	tests := []struct {
		op   string
		want bool
	}{
		{OpArchive, true},
		{OpUpdateCell, true},
		{OpLoad, false},
		{OpAddRow, false},
		{OpDeleteRow, false},
		{OpRemoveColumn, false},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			assert.Equal(t, tt.want, RolledBack(tt.op))
		})
	}
}
