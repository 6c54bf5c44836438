package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newColumnsCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Manage the board's columns",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show the column layout",
			Args:  usage(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := st.openLedger(cmd)
				if err != nil {
					return err
				}
				if st.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), l.Columns())
				}
				return printColumns(cmd.OutOrStdout(), l.Columns())
			},
		},
		&cobra.Command{
			Use:   "add [title]",
			Short: "Append a text column",
			Args:  usage(cobra.MaximumNArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := st.openLedger(cmd)
				if err != nil {
					return err
				}
				col, err := l.AddColumn(cmd.Context())
				if err != nil {
					return err
				}
				if len(args) == 1 {
					if err := l.UpdateHeader(cmd.Context(), col.ID, args[0]); err != nil {
						return err
					}
					col.Title = args[0]
				}
				if st.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), col)
				}
				fmt.Fprintln(cmd.OutOrStdout(), col.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <column> <title>",
			Short: "Change a column's title",
			Args:  usage(cobra.MinimumNArgs(2)),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := st.openLedger(cmd)
				if err != nil {
					return err
				}
				col, err := resolveColumn(l, args[0])
				if err != nil {
					return err
				}
				return l.UpdateHeader(cmd.Context(), col.ID, strings.Join(args[1:], " "))
			},
		},
		&cobra.Command{
			Use:   "delete <column>",
			Short: "Delete a column after confirmation",
			Long: `Delete a column from the layout. Values of added columns are also removed
from every stored row; values of built-in columns stay in the row store.`,
			Args: usage(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := st.openLedger(cmd)
				if err != nil {
					return err
				}
				col, err := resolveColumn(l, args[0])
				if err != nil {
					return err
				}
				req, err := l.RequestDeleteColumn(col.ID)
				if err != nil {
					return err
				}
				return settle(cmd, st, l, req)
			},
		},
	)
	return cmd
}
