package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gigboard/internal/config"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

func newInitCmd(st *state) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize gigboard configuration and storage",
		Long: `Create the configuration directory with a default config.yaml, the local
state directory and, for the sqlite backend, the data directory.`,
		Args: usage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (types.Config{Backend: backend}).Validate(); err != nil {
				return fmt.Errorf("%w: --backend %q", err, backend)
			}
			wrote, err := config.WriteDefault(st.dirs.Config, backend, st.flags.dataDir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(st.dirs.State, 0o755); err != nil {
				return fmt.Errorf("create state directory: %w", err)
			}
			if backend == types.BackendSQLite {
				// Attach creates the data directory and its JSONL files.
				if _, err := st.sqliteBackend(); err != nil {
					return fmt.Errorf("initialize storage: %w", err)
				}
			}
			out := cmd.OutOrStdout()
			if wrote {
				fmt.Fprintf(out, "Wrote %s/config.yaml\n", st.dirs.Config)
			}
			fmt.Fprintln(out, "gigboard initialized successfully")
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", types.BackendSQLite, "row store: sqlite, rest or local")
	return cmd
}
