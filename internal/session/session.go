// Package session tracks the signed-in identity on the client: it restores a
// saved session, signs in and out through an identity service and tells
// subscribers about every change.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/gigboard/internal/kv"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// State is the tracker's sign-in state.
type State int

// Tracker states.
const (
	Loading State = iota
	SignedIn
	SignedOut
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case SignedIn:
		return "signed in"
	case SignedOut:
		return "signed out"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Event is delivered to subscribers on every state change.
type Event struct {
	State   State
	Session types.Session
}

// subscriberBuffer is the channel capacity of each subscriber. Events are
// dropped for subscribers that fall this far behind.
const subscriberBuffer = 8

// tokenHolder is implemented by identity services that also carry the token
// on later requests, such as the REST client.
type tokenHolder interface {
	SetToken(token string)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// Tracker holds the current session.
type Tracker struct {
	identity types.Identity
	store    kv.Store
	log      zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	state State
	sess  types.Session
	subs  map[int]chan Event
	next  int
}

// NewTracker returns a tracker in the Loading state. Sessions are persisted
// in store under kv.KeySession.
func NewTracker(identity types.Identity, store kv.Store, opts ...Option) *Tracker {
	t := &Tracker{
		identity: identity,
		store:    store,
		log:      zerolog.Nop(),
		now:      time.Now,
		state:    Loading,
		subs:     make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore loads the saved session. A missing or expired session leaves the
// tracker signed out; an expired one is also deleted.
func (t *Tracker) Restore(ctx context.Context) (State, error) {
	var sess types.Session
	ok, err := kv.GetJSON(ctx, t.store, kv.KeySession, &sess)
	if err != nil {
		t.set(SignedOut, types.Session{})
		return SignedOut, fmt.Errorf("restoring session: %w", err)
	}
	if !ok || sess.Token == "" {
		t.set(SignedOut, types.Session{})
		return SignedOut, nil
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = tokenExpiry(sess.Token)
	}
	if sess.Expired(t.now()) {
		t.log.Info().Str("email", sess.Email).Msg("saved session expired")
		if err := t.store.Delete(ctx, kv.KeySession); err != nil {
			t.log.Warn().Err(err).Msg("deleting expired session")
		}
		t.set(SignedOut, types.Session{})
		return SignedOut, nil
	}
	if th, ok := t.identity.(tokenHolder); ok {
		th.SetToken(sess.Token)
	}
	t.set(SignedIn, sess)
	return SignedIn, nil
}

// SignIn signs in and persists the session.
func (t *Tracker) SignIn(ctx context.Context, email, password string) (types.Session, error) {
	sess, err := t.identity.SignIn(ctx, email, password)
	if err != nil {
		return types.Session{}, fmt.Errorf("signing in: %w", err)
	}
	return sess, t.adopt(ctx, sess)
}

// SignUp creates an account, signs in and persists the session.
func (t *Tracker) SignUp(ctx context.Context, email, password string) (types.Session, error) {
	sess, err := t.identity.SignUp(ctx, email, password)
	if err != nil {
		return types.Session{}, fmt.Errorf("signing up: %w", err)
	}
	return sess, t.adopt(ctx, sess)
}

// SignOut revokes the session and forgets it. The local session is dropped
// even when the identity service cannot be reached.
func (t *Tracker) SignOut(ctx context.Context) error {
	t.mu.Lock()
	state, sess := t.state, t.sess
	t.mu.Unlock()
	if state != SignedIn {
		return types.ErrNotSignedIn
	}

	remoteErr := t.identity.SignOut(ctx, sess.Token)
	if remoteErr != nil {
		t.log.Warn().Err(remoteErr).Msg("remote sign out failed")
	}
	if err := t.store.Delete(ctx, kv.KeySession); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	t.set(SignedOut, types.Session{})
	if remoteErr != nil {
		return fmt.Errorf("signing out: %w", remoteErr)
	}
	return nil
}

// Current returns the state and, when signed in, the session.
func (t *Tracker) Current() (State, types.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.sess
}

// Subscribe returns a channel of state changes and a function that ends the
// subscription and closes the channel.
func (t *Tracker) Subscribe() (<-chan Event, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	ch := make(chan Event, subscriberBuffer)
	t.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(ch)
		})
	}
}

func (t *Tracker) adopt(ctx context.Context, sess types.Session) error {
	if err := kv.SetJSON(ctx, t.store, kv.KeySession, sess); err != nil {
		t.set(SignedIn, sess)
		return fmt.Errorf("saving session: %w", err)
	}
	t.set(SignedIn, sess)
	return nil
}

func (t *Tracker) set(state State, sess types.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state, t.sess = state, sess
	ev := Event{State: state, Session: sess}
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// server verifies the token on every request.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
