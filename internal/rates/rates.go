// Package rates fetches the USD-based exchange-rate table used for prize
// conversion.
package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// Defaults for Feed.
const (
	DefaultURL     = "https://open.er-api.com/v6/latest/USD"
	DefaultPath    = "rates"
	DefaultTimeout = 10 * time.Second
)

// ErrMalformed is returned when the response holds no rate object at the
// configured path.
var ErrMalformed = errors.New("malformed rate response")

// Feed is an unauthenticated JSON endpoint returning currency code to
// USD-relative rate.
type Feed struct {
	URL     string
	Path    string // gjson path of the rate object
	Client  *http.Client
	Timeout time.Duration
}

// Fetch performs one GET and extracts the rate table. Non-numeric and
// non-positive entries are skipped.
func (f Feed) Fetch(ctx context.Context) (types.RateTable, error) {
	url := f.URL
	if url == "" {
		url = DefaultURL
	}
	path := f.Path
	if path == "" {
		path = DefaultPath
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building rate request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching rates: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading rates: %w", err)
	}
	return parse(body, path)
}

func parse(body []byte, path string) (types.RateTable, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformed
	}
	obj := gjson.GetBytes(body, path)
	if !obj.IsObject() {
		return nil, fmt.Errorf("%w: no object at %q", ErrMalformed, path)
	}
	table := make(types.RateTable)
	obj.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number && value.Float() > 0 {
			table[strings.ToUpper(key.String())] = value.Float()
		}
		return true
	})
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: empty rate object", ErrMalformed)
	}
	return table, nil
}

// Session fetches the rate table at most once. A failed fetch is logged and
// leaves conversion disabled for the rest of the session; it is not retried.
type Session struct {
	feed Feed
	log  zerolog.Logger

	once  sync.Once
	table types.RateTable
}

// NewSession returns a Session over feed.
func NewSession(feed Feed, log zerolog.Logger) *Session {
	return &Session{feed: feed, log: log}
}

// Rates returns the session's rate table, fetching it on first use. It
// returns nil when the feed is unavailable.
func (s *Session) Rates(ctx context.Context) types.RateTable {
	s.once.Do(func() {
		table, err := s.feed.Fetch(ctx)
		if err != nil {
			s.log.Warn().Err(err).Str("url", s.feed.URL).Msg("exchange rates unavailable, conversion disabled")
			return
		}
		s.log.Debug().Int("currencies", len(table)).Msg("exchange rates loaded")
		s.table = table
	})
	return s.table
}
