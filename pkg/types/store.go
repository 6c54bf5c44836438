package types

import (
	"context"
	"time"
)

// RowStore is the remote row-store boundary: CRUD over one logical projects
// collection scoped to the signed-in user.
type RowStore interface {
	// List returns every record, newest first.
	List(ctx context.Context) ([]Record, error)

	// Insert creates rec and returns the stored record with its assigned ID.
	Insert(ctx context.Context, rec Record) (Record, error)

	// Update applies patch to the record with the given ID.
	// Returns ErrNotFound if no such record exists.
	Update(ctx context.Context, id string, patch RecordPatch) error

	// Delete removes the record with the given ID.
	// Returns ErrNotFound if no such record exists.
	Delete(ctx context.Context, id string) error
}

// Session is an authenticated identity.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Identity is the identity-service boundary.
type Identity interface {
	SignUp(ctx context.Context, email, password string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
}
