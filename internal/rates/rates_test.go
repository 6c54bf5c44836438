package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

func serve(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"result":"success","base_code":"USD","rates":{"USD":1,"IDR":15500.5,"eur":0.92,"BAD":"x","ZERO":0}}`, nil)

	table, err := Feed{URL: srv.URL}.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.RateTable{"USD": 1, "IDR": 15500.5, "EUR": 0.92}, table)
}

func TestFetchCustomPath(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"data":{"quotes":{"USD":1,"GBP":0.8}}}`, nil)

	table, err := Feed{URL: srv.URL, Path: "data.quotes"}.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.RateTable{"USD": 1, "GBP": 0.8}, table)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"rates":{"USD":1}}`},
		{"not json", http.StatusOK, `<html>`},
		{"no rates", http.StatusOK, `{"result":"error"}`},
		{"empty rates", http.StatusOK, `{"rates":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body, nil)
			table, err := Feed{URL: srv.URL}.Fetch(context.Background())
			assert.Error(t, err)
			assert.Nil(t, table)
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	_, err := Feed{URL: srv.URL, Timeout: 20 * time.Millisecond}.Fetch(context.Background())
	assert.Error(t, err)
}

func TestSessionFetchesOnce(t *testing.T) {
	var hits int32
	srv := serve(t, http.StatusOK, `{"rates":{"USD":1,"IDR":15000}}`, &hits)
	s := NewSession(Feed{URL: srv.URL}, zerolog.Nop())

	first := s.Rates(context.Background())
	second := s.Rates(context.Background())
	assert.Equal(t, types.RateTable{"USD": 1, "IDR": 15000}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSessionDegradesSilently(t *testing.T) {
	var hits int32
	srv := serve(t, http.StatusBadGateway, ``, &hits)
	s := NewSession(Feed{URL: srv.URL}, zerolog.Nop())

	assert.Nil(t, s.Rates(context.Background()))
	assert.Nil(t, s.Rates(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "no retry")
}
