package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/gigboard/internal/auth"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// Users is the account store used by the identity service.
type Users struct {
	b *Backend
}

var _ auth.UserStore = (*Users)(nil)

// CreateUser stores u. Returns types.ErrConflict if the email is taken.
func (s *Users) CreateUser(ctx context.Context, u auth.User) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if !s.b.attached {
		return types.ErrDetached
	}

	var n int
	if err := s.b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`, u.Email).Scan(&n); err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("email %s: %w", u.Email, types.ErrConflict)
	}

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.b.now()
	}
	_, err := s.b.db.ExecContext(ctx,
		`INSERT INTO users (user_id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, createdAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return s.b.persistUsers(ctx)
}

// UserByEmail returns the account with the given email.
func (s *Users) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	if !s.b.attached {
		return auth.User{}, types.ErrDetached
	}

	var u auth.User
	var createdAt string
	err := s.b.db.QueryRowContext(ctx,
		`SELECT user_id, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, fmt.Errorf("user %s: %w", email, types.ErrNotFound)
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("finding user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return u, nil
}

// persistUsers rewrites users.jsonl from the users table.
// The caller must hold b.mu.
func (b *Backend) persistUsers(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx,
		`SELECT user_id, email, password_hash, created_at FROM users ORDER BY created_at, user_id`)
	if err != nil {
		return fmt.Errorf("reading users for JSONL: %w", err)
	}
	defer rows.Close()

	var records []any
	for rows.Next() {
		var u userJSON
		if err := rows.Scan(&u.UserID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return fmt.Errorf("scanning user for JSONL: %w", err)
		}
		records = append(records, u)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(b.path(usersJSONL), records)
}
