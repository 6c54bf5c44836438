package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/gigboard/internal/config"
	"github.com/mesh-intelligence/gigboard/internal/currency"
	"github.com/mesh-intelligence/gigboard/internal/kv"
	"github.com/mesh-intelligence/gigboard/internal/ledger"
	"github.com/mesh-intelligence/gigboard/internal/logging"
	"github.com/mesh-intelligence/gigboard/internal/paths"
	"github.com/mesh-intelligence/gigboard/internal/rates"
	"github.com/mesh-intelligence/gigboard/internal/rest"
	"github.com/mesh-intelligence/gigboard/internal/session"
	"github.com/mesh-intelligence/gigboard/internal/sqlite"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// state is shared by the commands of one invocation. Stores are opened on
// first use and released by close.
type state struct {
	flags rootFlags
	cfg   config.Config
	dirs  paths.Dirs
	log   zerolog.Logger

	kvStore kv.Store
	redis   *redis.Client
	backend *sqlite.Backend
	client  *rest.Client
	tracker *session.Tracker
	ledger  *ledger.Ledger
	rates   *rates.Session
}

// load resolves directories, reads the configuration and sets up logging.
func (s *state) load(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(s.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	dataDir, err := paths.ResolveDataDir(s.flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.cfg = cfg
	s.dirs = paths.Dirs{Config: configDir, Data: dataDir, State: paths.StateDir(configDir)}
	s.log = logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Output: cmd.ErrOrStderr(),
		Pretty: cfg.Log.Pretty,
	})
	return nil
}

// close releases whatever was opened. It is safe to call more than once.
func (s *state) close() error {
	var errs []error
	if s.ledger != nil {
		errs = append(errs, s.ledger.Close())
		s.ledger = nil
	}
	if s.backend != nil {
		errs = append(errs, s.backend.Detach())
		s.backend = nil
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
		s.redis = nil
	}
	return errors.Join(errs...)
}

// store opens the local key-value store.
func (s *state) store(ctx context.Context) (kv.Store, error) {
	if s.kvStore != nil {
		return s.kvStore, nil
	}
	switch s.cfg.KV.Driver {
	case config.KVRedis:
		rc := s.cfg.KV.Redis
		client, err := kv.DialRedis(ctx, rc.Addr, rc.Password, rc.DB)
		if err != nil {
			return nil, err
		}
		s.redis = client
		s.kvStore = kv.NewRedis(client, rc.Prefix)
	default:
		f, err := kv.NewFile(afero.NewOsFs(), s.dirs.State)
		if err != nil {
			return nil, err
		}
		s.kvStore = f
	}
	return s.kvStore, nil
}

// sqliteBackend attaches the embedded store in the data directory.
func (s *state) sqliteBackend() (*sqlite.Backend, error) {
	if s.backend != nil {
		return s.backend, nil
	}
	b := sqlite.NewBackend()
	if err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: s.dirs.Data}); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	s.backend = b
	return b, nil
}

// session returns the session tracker of the remote server, restored from
// the local store.
func (s *state) session(ctx context.Context) (*session.Tracker, error) {
	if s.tracker != nil {
		return s.tracker, nil
	}
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}
	s.client = rest.New(s.cfg.Server.URL, rest.WithTimeout(s.cfg.Server.Timeout))
	s.tracker = session.NewTracker(s.client, store, session.WithLogger(s.log))
	if _, err := s.tracker.Restore(ctx); err != nil {
		s.log.Warn().Err(err).Msg("saved session unreadable")
	}
	return s.tracker, nil
}

// rowStore returns the row store of the configured backend.
func (s *state) rowStore(ctx context.Context) (types.RowStore, error) {
	switch s.cfg.Backend {
	case types.BackendSQLite:
		b, err := s.sqliteBackend()
		if err != nil {
			return nil, err
		}
		return b.Projects(s.cfg.User), nil
	case types.BackendREST:
		tr, err := s.session(ctx)
		if err != nil {
			return nil, err
		}
		if st, _ := tr.Current(); st != session.SignedIn {
			return nil, fmt.Errorf("%w: run gigboard signin", types.ErrNotSignedIn)
		}
		return s.client, nil
	case types.BackendLocal:
		store, err := s.store(ctx)
		if err != nil {
			return nil, err
		}
		return kv.NewRowStore(store), nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, s.cfg.Backend)
}

// converter returns the configured reference-currency converter.
func (s *state) converter() currency.Converter {
	conv := currency.Default()
	if c := s.cfg.Currency; c.Target != "" {
		conv.Target = c.Target
		conv.Prefix = c.Prefix
		if tag, err := language.Parse(c.Locale); err == nil {
			conv.Locale = tag
		}
	}
	return conv
}

// rateTable fetches the exchange rates once per invocation; nil when the
// feed is unavailable.
func (s *state) rateTable(ctx context.Context) types.RateTable {
	if s.rates == nil {
		s.rates = rates.NewSession(rates.Feed{
			URL:     s.cfg.Rates.URL,
			Path:    s.cfg.Rates.Path,
			Timeout: s.cfg.Rates.Timeout,
		}, s.log)
	}
	return s.rates.Rates(ctx)
}

// openLedger loads the board from the configured backend.
func (s *state) openLedger(cmd *cobra.Command) (*ledger.Ledger, error) {
	if s.ledger != nil {
		return s.ledger, nil
	}
	ctx := cmd.Context()
	rows, err := s.rowStore(ctx)
	if err != nil {
		return nil, err
	}
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}
	warn := color.New(color.FgYellow)
	l := ledger.New(rows,
		ledger.WithLogger(s.log),
		ledger.WithConverter(s.converter()),
		ledger.WithTimeout(s.cfg.Server.Timeout),
		ledger.WithLayout(kv.Layout{Store: store}),
		ledger.WithNotifier(ledger.NotifierFunc(func(op string, err error) {
			fmt.Fprintln(cmd.ErrOrStderr(), warn.Sprint(notice(op, err)))
		})),
	)
	if err := l.Load(ctx); err != nil {
		return nil, err
	}
	s.ledger = l
	return l, nil
}

// notice is the warning printed when a store call fails.
func notice(op string, err error) string {
	if ledger.RolledBack(op) {
		return fmt.Sprintf("%s failed, local changes were reverted: %v", op, err)
	}
	return fmt.Sprintf("%s failed: %v", op, err)
}

// withRates fetches rates into l and refreshes the converted values.
func (s *state) withRates(cmd *cobra.Command, l *ledger.Ledger) {
	if table := s.rateTable(cmd.Context()); table != nil {
		l.SetRates(table)
		l.Recalculate()
	}
}
