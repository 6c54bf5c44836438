// Package rest is the HTTP client of a gigboard server. It implements the
// row store and the identity service over JSON.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// Defaults.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
)

// ErrorResponse is the error body returned by the server.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Credentials is the sign-up and sign-in request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StatusError is a non-2xx response. It unwraps to the sentinel named by the
// response's error code, or to one derived from the status.
type StatusError struct {
	Status  int
	Message string
	Code    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	if err := types.ErrorForCode(e.Code); err != nil {
		return err
	}
	switch {
	case e.Status == http.StatusNotFound:
		return types.ErrNotFound
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return types.ErrUnauthorized
	case e.Status == http.StatusConflict:
		return types.ErrConflict
	case e.Status >= 500:
		return types.ErrUnavailable
	case e.Status >= 400:
		return types.ErrBadRequest
	}
	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithMaxRetries sets how many times List is retried.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackOff replaces the retry schedule, mostly for tests.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// Client talks to one gigboard server.
type Client struct {
	baseURL    string
	http       *http.Client
	timeout    time.Duration
	maxRetries uint64
	newBackOff func() backoff.BackOff

	mu    sync.RWMutex
	token string
}

var (
	_ types.RowStore = (*Client)(nil)
	_ types.Identity = (*Client)(nil)
)

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       http.DefaultClient,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// List returns the signed-in user's records, newest first. Transport errors
// and 5xx responses are retried with exponential backoff.
func (c *Client) List(ctx context.Context) ([]types.Record, error) {
	var recs []types.Record
	op := func() error {
		recs = nil
		err := c.do(ctx, http.MethodGet, "/projects", nil, &recs)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	if recs == nil {
		recs = []types.Record{}
	}
	return recs, nil
}

// Insert creates rec and returns the stored record.
func (c *Client) Insert(ctx context.Context, rec types.Record) (types.Record, error) {
	var out types.Record
	if err := c.do(ctx, http.MethodPost, "/projects", rec, &out); err != nil {
		return types.Record{}, fmt.Errorf("inserting project: %w", err)
	}
	return out, nil
}

// Update applies patch to the record with the given ID.
func (c *Client) Update(ctx context.Context, id string, patch types.RecordPatch) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if err := c.do(ctx, http.MethodPatch, "/projects/"+id, patch, nil); err != nil {
		return fmt.Errorf("updating project %s: %w", id, err)
	}
	return nil
}

// Delete removes the record with the given ID.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if err := c.do(ctx, http.MethodDelete, "/projects/"+id, nil, nil); err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	return nil
}

// SignUp creates an account and adopts its token.
func (c *Client) SignUp(ctx context.Context, email, password string) (types.Session, error) {
	return c.authenticate(ctx, "/auth/signup", email, password)
}

// SignIn signs in and adopts the token.
func (c *Client) SignIn(ctx context.Context, email, password string) (types.Session, error) {
	return c.authenticate(ctx, "/auth/signin", email, password)
}

// SignOut revokes token on the server and forgets it locally.
func (c *Client) SignOut(ctx context.Context, token string) error {
	err := c.doWithToken(ctx, token, http.MethodPost, "/auth/signout", nil, nil)
	if c.Token() == token {
		c.SetToken("")
	}
	if err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (types.Session, error) {
	var sess types.Session
	if err := c.doWithToken(ctx, "", http.MethodPost, path, Credentials{Email: email, Password: password}, &sess); err != nil {
		return types.Session{}, err
	}
	c.SetToken(sess.Token)
	return sess, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	return c.doWithToken(ctx, c.Token(), method, path, in, out)
}

func (c *Client) doWithToken(ctx context.Context, token, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Status: resp.StatusCode}
		var er ErrorResponse
		if data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(data, &er) == nil {
			se.Message = er.Error
			se.Code = er.Code
		}
		return se
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// retryable reports whether err is a transport failure or a 5xx response.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	return !errors.Is(err, context.Canceled)
}
