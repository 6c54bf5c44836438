package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gigboard/internal/auth"
	"github.com/mesh-intelligence/gigboard/internal/server"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

func newServeCmd(st *state) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the row store and identity service over HTTP",
		Long: `Serve accounts and projects from the sqlite store in the data directory.
Tokens are signed with serve.jwt_secret (GIGBOARD_SERVE_JWT_SECRET).`,
		Args: usage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := st.cfg.Serve.JWTSecret
			if secret == "" {
				return fmt.Errorf("%w: serve.jwt_secret is not set", errUsage)
			}
			backend, err := st.sqliteBackend()
			if err != nil {
				return err
			}
			svc := auth.NewService(backend.Users(), []byte(secret), auth.WithTTL(st.cfg.Serve.TokenTTL))

			cfg := server.DefaultConfig()
			cfg.Addr = st.cfg.Serve.Listen
			if listen != "" {
				cfg.Addr = listen
			}
			cfg.AllowedOrigins = st.cfg.Serve.AllowedOrigins
			srv := server.New(cfg, svc, func(userID string) types.RowStore {
				return backend.Projects(userID)
			}, st.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			fmt.Fprintf(cmd.OutOrStdout(), "gigboard serving on %s\n", cfg.Addr)

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from serve.listen)")
	return cmd
}
