package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gigboard/internal/kv"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

type fakeIdentity struct {
	sess      types.Session
	err       error
	signedOut []string
	token     string
}

func (f *fakeIdentity) SignUp(ctx context.Context, email, password string) (types.Session, error) {
	return f.SignIn(ctx, email, password)
}

func (f *fakeIdentity) SignIn(ctx context.Context, email, password string) (types.Session, error) {
	if f.err != nil {
		return types.Session{}, f.err
	}
	s := f.sess
	s.Email = email
	return s, nil
}

func (f *fakeIdentity) SignOut(ctx context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return f.err
}

func (f *fakeIdentity) SetToken(token string) { f.token = token }

func newStore(t *testing.T) kv.Store {
	t.Helper()
	s, err := kv.NewFile(afero.NewMemMapFs(), "/state")
	require.NoError(t, err)
	return s
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func TestRestoreWithoutSession(t *testing.T) {
	tr := NewTracker(&fakeIdentity{}, newStore(t), WithClock(clock))
	state, _ := tr.Current()
	assert.Equal(t, Loading, state)

	state, err := tr.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SignedOut, state)
}

func TestSignInPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	id := &fakeIdentity{sess: types.Session{Token: "tok", UserID: "u1", ExpiresAt: now.Add(time.Hour)}}

	tr := NewTracker(id, store, WithClock(clock))
	_, err := tr.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	state, sess := tr.Current()
	assert.Equal(t, SignedIn, state)
	assert.Equal(t, "a@b.c", sess.Email)

	id2 := &fakeIdentity{}
	tr2 := NewTracker(id2, store, WithClock(clock))
	state, err = tr2.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, SignedIn, state)
	assert.Equal(t, "tok", id2.token)
}

func TestRestoreDropsExpiredSession(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, kv.SetJSON(ctx, store, kv.KeySession, types.Session{Token: "tok", ExpiresAt: now.Add(-time.Minute)}))

	tr := NewTracker(&fakeIdentity{}, store, WithClock(clock))
	state, err := tr.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, SignedOut, state)

	_, err = store.Get(ctx, kv.KeySession)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRestoreReadsExpiryFromToken(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": now.Add(-time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, kv.SetJSON(ctx, store, kv.KeySession, types.Session{Token: token}))

	tr := NewTracker(&fakeIdentity{}, store, WithClock(clock))
	state, err := tr.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, SignedOut, state)
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	id := &fakeIdentity{sess: types.Session{Token: "tok"}}
	tr := NewTracker(id, store, WithClock(clock))

	assert.ErrorIs(t, tr.SignOut(ctx), types.ErrNotSignedIn)

	_, err := tr.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	require.NoError(t, tr.SignOut(ctx))
	assert.Equal(t, []string{"tok"}, id.signedOut)

	state, _ := tr.Current()
	assert.Equal(t, SignedOut, state)
	_, err = store.Get(ctx, kv.KeySession)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSignOutRemoteFailureStillSignsOutLocally(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{sess: types.Session{Token: "tok"}}
	tr := NewTracker(id, newStore(t), WithClock(clock))
	_, err := tr.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	id.err = types.ErrUnavailable
	assert.ErrorIs(t, tr.SignOut(ctx), types.ErrUnavailable)
	state, _ := tr.Current()
	assert.Equal(t, SignedOut, state)
}

func TestSignInFailureKeepsState(t *testing.T) {
	tr := NewTracker(&fakeIdentity{err: types.ErrUnauthorized}, newStore(t), WithClock(clock))
	_, err := tr.Restore(context.Background())
	require.NoError(t, err)

	_, err = tr.SignIn(context.Background(), "a@b.c", "bad")
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	state, _ := tr.Current()
	assert.Equal(t, SignedOut, state)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(&fakeIdentity{sess: types.Session{Token: "tok"}}, newStore(t), WithClock(clock))
	events, cancel := tr.Subscribe()

	_, err := tr.Restore(ctx)
	require.NoError(t, err)
	_, err = tr.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	assert.Equal(t, SignedOut, (<-events).State)
	ev := <-events
	assert.Equal(t, SignedIn, ev.State)
	assert.Equal(t, "tok", ev.Session.Token)

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "signed in", SignedIn.String())
	assert.Equal(t, "State(9)", State(9).String())
}
