// Package auth is the identity service: password accounts, HS256 session
// tokens and token revocation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// DefaultTTL is the lifetime of issued tokens.
const DefaultTTL = 7 * 24 * time.Hour

// User is a stored account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStore persists accounts.
type UserStore interface {
	// CreateUser stores u. Returns types.ErrConflict if the email is taken.
	CreateUser(ctx context.Context, u User) error

	// UserByEmail returns the account with the given email.
	// Returns types.ErrNotFound if there is none.
	UserByEmail(ctx context.Context, email string) (User, error)
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets the token lifetime.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithCost sets the bcrypt cost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// Service signs users up and in and issues their tokens.
type Service struct {
	users  UserStore
	tokens *jwtauth.JWTAuth
	ttl    time.Duration
	cost   int

	mu      sync.Mutex
	revoked map[string]time.Time // token ID -> expiry
}

// NewService returns a Service signing tokens with secret.
func NewService(users UserStore, secret []byte, opts ...Option) *Service {
	s := &Service{
		users:   users,
		tokens:  jwtauth.New("HS256", secret, nil),
		ttl:     DefaultTTL,
		cost:    bcrypt.DefaultCost,
		revoked: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenAuth returns the token codec, for request verification middleware.
func (s *Service) TokenAuth() *jwtauth.JWTAuth {
	return s.tokens
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (types.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return types.Session{}, types.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return types.Session{}, fmt.Errorf("hashing password: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return types.Session{}, fmt.Errorf("generating user id: %w", err)
	}
	u := User{ID: id.String(), Email: email, PasswordHash: string(hash), CreatedAt: time.Now().UTC()}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return types.Session{}, fmt.Errorf("creating user: %w", err)
	}
	return s.issue(u)
}

// SignIn checks the password and issues a token. Unknown emails and wrong
// passwords both yield types.ErrUnauthorized.
func (s *Service) SignIn(ctx context.Context, email, password string) (types.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return types.Session{}, types.ErrInvalidCredentials
	}
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, types.ErrNotFound) {
		return types.Session{}, types.ErrUnauthorized
	}
	if err != nil {
		return types.Session{}, fmt.Errorf("finding user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return types.Session{}, types.ErrUnauthorized
	}
	return s.issue(u)
}

// SignOut revokes token. Signing out an invalid token is an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sess, jti, err := s.verify(token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = sess.ExpiresAt
	return nil
}

// Verify returns the session of a valid, unrevoked token.
func (s *Service) Verify(token string) (types.Session, error) {
	sess, _, err := s.verify(token)
	return sess, err
}

// Revoked reports whether the token ID was signed out.
func (s *Service) Revoked(jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok
}

func (s *Service) verify(token string) (types.Session, string, error) {
	tok, err := jwtauth.VerifyToken(s.tokens, token)
	if err != nil {
		return types.Session{}, "", fmt.Errorf("%w: %v", types.ErrUnauthorized, err)
	}
	jti := tok.JwtID()
	if jti == "" || s.Revoked(jti) {
		return types.Session{}, "", fmt.Errorf("%w: token revoked", types.ErrUnauthorized)
	}
	email, _ := tok.PrivateClaims()["email"].(string)
	return types.Session{
		Token:     token,
		UserID:    tok.Subject(),
		Email:     email,
		ExpiresAt: tok.Expiration(),
	}, jti, nil
}

func (s *Service) issue(u User) (types.Session, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"jti":   uuid.NewString(),
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	_, token, err := s.tokens.Encode(claims)
	if err != nil {
		return types.Session{}, fmt.Errorf("signing token: %w", err)
	}
	return types.Session{
		Token:     token,
		UserID:    u.ID,
		Email:     u.Email,
		ExpiresAt: time.Unix(exp.Unix(), 0).UTC(),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
