// Package cli implements the gigboard command-line interface: the board
// presentation over a ledger, the account commands and the server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks mistakes in how a command was invoked.
var errUsage = errors.New("usage")

// errAborted is returned when the user declines a confirmation.
var errAborted = errors.New("aborted")

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	yes       bool
	noColor   bool
}

// NewRootCmd creates the top-level "gigboard" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&state{})
}

func newRootCmd(st *state) *cobra.Command {
	root := &cobra.Command{
		Use:   "gigboard",
		Short: "A project and contest ledger for freelancers",
		Long: "gigboard tracks freelance projects and contests in an editable table with\n" +
			"status tagging, deadline countdowns and currency conversion.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if st.flags.noColor {
				color.NoColor = true
			}
			if cmd.Name() == "version" {
				return nil
			}
			return st.load(cmd)
		},
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&st.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.gigboard)")
	pf.StringVar(&st.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.gigboard-db)")
	pf.BoolVar(&st.flags.jsonMode, "json", false, "output as JSON")
	pf.BoolVarP(&st.flags.yes, "yes", "y", false, "answer yes to confirmations")
	pf.BoolVar(&st.flags.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(st),
		newServeCmd(st),
		newSignUpCmd(st),
		newSignInCmd(st),
		newSignOutCmd(st),
		newWhoAmICmd(st),
		newRowsCmd(st),
		newColumnsCmd(st),
		newRatesCmd(st),
		newBoardCmd(st),
		newDeadlineCmd(st),
		newExportCmd(st),
		newImportCmd(st),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	st := &state{}
	root := newRootCmd(st)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := execute(ctx, root, st)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, color.New(color.FgRed).Sprint("error: "+err.Error()))
	return exitCode(err)
}

// execute runs root and releases whatever the command opened, whether or
// not it failed.
func execute(ctx context.Context, root *cobra.Command, st *state) (err error) {
	defer func() {
		if cerr := st.close(); err == nil {
			err = cerr
		}
	}()
	return root.ExecuteContext(ctx)
}

// userErrors are failures caused by the input rather than the environment.
var userErrors = []error{
	errUsage,
	errAborted,
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrColumnNotFound,
	types.ErrInvalidStatus,
	types.ErrInvalidCategory,
	types.ErrInvalidDate,
	types.ErrDerivedColumn,
	types.ErrInvalidImport,
	types.ErrInvalidCredentials,
	types.ErrUnauthorized,
	types.ErrConflict,
	types.ErrNotSignedIn,
	types.ErrBackendUnknown,
	types.ErrBadRequest,
}

func exitCode(err error) int {
	for _, u := range userErrors {
		if errors.Is(err, u) {
			return exitUserError
		}
	}
	// cobra reports unknown commands without a sentinel.
	if strings.HasPrefix(err.Error(), "unknown command") {
		return exitUserError
	}
	return exitSysError
}

// usage wraps a cobra argument validator so that its failures exit as user
// errors.
func usage(args cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := args(cmd, a); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}
