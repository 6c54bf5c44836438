package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestListRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]types.Record{{ID: "p1", Name: "a"}})
	}))
	defer ts.Close()

	c := New(ts.URL, WithToken("tok"), WithBackOff(noWait))
	recs, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p1", recs[0].ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestListGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := New(ts.URL, WithBackOff(noWait), WithMaxRetries(2))
	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, types.ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestListDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "nope", Code: "unauthorized"})
	}))
	defer ts.Close()

	c := New(ts.URL, WithBackOff(noWait))
	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmptyListIsNotNil(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer ts.Close()

	recs, err := New(ts.URL).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *StatusError
		want error
	}{
		{"code wins", &StatusError{Status: http.StatusBadRequest, Code: "invalid_credentials"}, types.ErrInvalidCredentials},
		{"404", &StatusError{Status: http.StatusNotFound}, types.ErrNotFound},
		{"401", &StatusError{Status: http.StatusUnauthorized}, types.ErrUnauthorized},
		{"409", &StatusError{Status: http.StatusConflict}, types.ErrConflict},
		{"500", &StatusError{Status: http.StatusInternalServerError}, types.ErrUnavailable},
		{"422", &StatusError{Status: http.StatusUnprocessableEntity}, types.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.want)
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	done := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-done:
		}
	}))
	defer ts.Close()
	defer close(done)

	c := New(ts.URL, WithTimeout(20*time.Millisecond))
	err := c.Delete(context.Background(), "p1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpdateSendsPatch(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/projects/p1", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	status := "Won"
	require.NoError(t, New(ts.URL).Update(context.Background(), "p1", types.RecordPatch{Status: &status}))
	assert.Equal(t, "Won", got["status"])
	assert.Contains(t, got, "metadata")
	assert.Nil(t, got["metadata"])
	assert.NotContains(t, got, "name")

	assert.ErrorIs(t, New(ts.URL).Update(context.Background(), "", types.RecordPatch{}), types.ErrInvalidID)
}
