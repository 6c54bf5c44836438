package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gigboard/internal/ledger"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

func newRowsCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "List and edit board rows",
	}
	cmd.AddCommand(
		newRowsListCmd(st),
		newRowsAddCmd(st),
		newRowsSetCmd(st),
		newRowsArchiveCmd(st),
		newRowsDeleteCmd(st),
		newRowsEditCmd(st),
	)
	return cmd
}

type listOptions struct {
	filters  []string
	quick    []string
	sort     string
	archived bool
	noRates  bool
}

func newRowsListCmd(st *state) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the board, filtered and sorted",
		Long: `Show the active rows of the board, or the archived ones with --archived.

Filters are column=pattern pairs matched as case-insensitive substrings; a
column may be named by ID or title. --quick sets a filter to an exact tag
value, as clicking a status or category does on the board.

Examples:
  gigboard rows list --filter name=logo
  gigboard rows list --quick status=Active --sort deadline
  gigboard rows list --sort prize:desc`,
		Args: usage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := st.openLedger(cmd)
			if err != nil {
				return err
			}
			if !opts.noRates {
				st.withRates(cmd, l)
			}
			if err := applyListOptions(l, opts); err != nil {
				return err
			}
			rows := l.Visible()
			if st.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), rowsJSON(rows))
			}
			return printRows(cmd.OutOrStdout(), l.Columns(), rows)
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&opts.filters, "filter", nil, "column=pattern substring filter (repeatable)")
	f.StringArrayVar(&opts.quick, "quick", nil, "column=value quick filter (repeatable)")
	f.StringVar(&opts.sort, "sort", "", "column[:asc|desc] sort directive")
	f.BoolVar(&opts.archived, "archived", false, "show archived rows instead of active ones")
	f.BoolVar(&opts.noRates, "no-rates", false, "skip fetching exchange rates")
	return cmd
}

func applyListOptions(l *ledger.Ledger, opts listOptions) error {
	l.SetShowArchived(opts.archived)
	for _, f := range opts.filters {
		col, pattern, err := splitPair(l, f)
		if err != nil {
			return err
		}
		l.SetFilter(col.ID, pattern)
	}
	for _, q := range opts.quick {
		col, value, err := splitPair(l, q)
		if err != nil {
			return err
		}
		l.QuickFilter(col.ID, value)
	}
	if opts.sort == "" {
		return nil
	}
	ref, dir, _ := strings.Cut(opts.sort, ":")
	col, err := resolveColumn(l, ref)
	if err != nil {
		return err
	}
	cfg := types.SortConfig{ColumnID: col.ID, Direction: types.SortAsc}
	switch strings.ToLower(dir) {
	case "", "asc":
	case "desc":
		cfg.Direction = types.SortDesc
	default:
		return fmt.Errorf("%w: sort direction %q (want asc or desc)", errUsage, dir)
	}
	l.SetSort(&cfg)
	return nil
}

func splitPair(l *ledger.Ledger, pair string) (types.Column, string, error) {
	ref, value, ok := strings.Cut(pair, "=")
	if !ok {
		return types.Column{}, "", fmt.Errorf("%w: %q (expected column=value)", errUsage, pair)
	}
	col, err := resolveColumn(l, ref)
	return col, value, err
}

func newRowsAddCmd(st *state) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an empty row at the top of the board",
		Long: `Add a row with the default category and status. Cells may be filled in
the same step with --set column=value.`,
		Args: usage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := st.openLedger(cmd)
			if err != nil {
				return err
			}
			row, err := l.AddRow(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range sets {
				col, value, err := splitPair(l, s)
				if err != nil {
					return err
				}
				if err := l.UpdateCell(cmd.Context(), row.ID, col.ID, value); err != nil {
					return err
				}
			}
			row, err = l.Row(row.ID)
			if err != nil {
				return err
			}
			if st.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), rowsJSON([]types.Row{row})[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), row.ID)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "column=value to fill in (repeatable)")
	return cmd
}

func newRowsSetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "set <row> <column> <value>",
		Short: "Set one cell",
		Long: `Set one cell. Status and category cells accept only their fixed values;
deadline cells accept RFC3339 or YYYY-MM-DD dates. Setting the prize
refreshes the converted value.`,
		Args: usage(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := st.openLedger(cmd)
			if err != nil {
				return err
			}
			row, err := resolveRow(l, args[0])
			if err != nil {
				return err
			}
			col, err := resolveColumn(l, args[1])
			if err != nil {
				return err
			}
			if col.ID == types.ColPrize {
				st.withRates(cmd, l)
			}
			return l.UpdateCell(cmd.Context(), row.ID, col.ID, args[2])
		},
	}
}

func newRowsArchiveCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <row>",
		Short: "Toggle whether a row is archived",
		Args:  usage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := st.openLedger(cmd)
			if err != nil {
				return err
			}
			row, err := resolveRow(l, args[0])
			if err != nil {
				return err
			}
			if err := l.ToggleArchive(cmd.Context(), row.ID); err != nil {
				return err
			}
			verb := "archived"
			if row.Archived {
				verb = "restored"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", shortID(row.ID), verb)
			return nil
		},
	}
}

func newRowsDeleteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <row>",
		Short: "Delete a row after confirmation",
		Args:  usage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := st.openLedger(cmd)
			if err != nil {
				return err
			}
			row, err := resolveRow(l, args[0])
			if err != nil {
				return err
			}
			req, err := l.RequestDeleteRow(row.ID)
			if err != nil {
				return err
			}
			return settle(cmd, st, l, req)
		},
	}
}

// settle answers the pending confirmation on the terminal.
func settle(cmd *cobra.Command, st *state, l *ledger.Ledger, req ledger.ConfirmRequest) error {
	ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), st.flags.yes, req.Title, req.Message)
	if err != nil {
		return err
	}
	if !ok {
		l.Cancel()
		return errAborted
	}
	return l.Confirm(cmd.Context())
}

func newRowsEditCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <row> <column>",
		Short: "Edit one cell interactively",
		Long: `Show the current value of a cell and read its replacement from standard
input. An empty line keeps the current value.`,
		Args: usage(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := st.openLedger(cmd)
			if err != nil {
				return err
			}
			row, err := resolveRow(l, args[0])
			if err != nil {
				return err
			}
			col, err := resolveColumn(l, args[1])
			if err != nil {
				return err
			}
			if err := l.BeginEdit(row.ID, col.ID); err != nil {
				return err
			}
			current := row.Get(col.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]: ", col.Title, current)
			value, err := readLine(cmd.InOrStdin())
			if err != nil && value == "" {
				l.CancelEdit()
				return errAborted
			}
			if value == "" {
				l.CancelEdit()
				return nil
			}
			if col.ID == types.ColPrize {
				st.withRates(cmd, l)
			}
			return l.CommitEdit(cmd.Context(), value)
		},
	}
}
