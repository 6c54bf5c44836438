package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gigboard/internal/deadline"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// boardCard is the --json shape of one active project.
type boardCard struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Deadline  string `json:"deadline"`
	Countdown string `json:"countdown"`
	Prize     string `json:"prize"`
	Converted string `json:"converted"`
}

func newBoardCmd(st *state) *cobra.Command {
	var noRates bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show active projects with their deadline countdowns",
		Args:  usage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := st.openLedger(cmd)
			if err != nil {
				return err
			}
			if !noRates {
				st.withRates(cmd, l)
			}
			now := time.Now()
			var cards []boardCard
			for _, r := range l.ActiveProjects() {
				cards = append(cards, boardCard{
					ID:        r.ID,
					Name:      r.Get(types.ColName),
					Category:  r.Get(types.ColCategory),
					Deadline:  r.Get(types.ColDeadline),
					Countdown: deadline.Countdown(r.Get(types.ColDeadline), now),
					Prize:     r.Get(types.ColPrize),
					Converted: r.Get(types.ColConverted),
				})
			}
			if st.flags.jsonMode {
				if cards == nil {
					cards = []boardCard{}
				}
				return printJSON(cmd.OutOrStdout(), cards)
			}
			if len(cards) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active projects")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join([]string{"ID", "NAME", "CATEGORY", "DUE", "PRIZE", "CONVERTED"}, "\t"))
			for _, c := range cards {
				due := c.Countdown
				if due == deadline.Expired {
					due = paint("red", due)
				} else {
					due = paint("zinc", due)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", shortID(c.ID), c.Name,
					paint(types.Category(c.Category).Color(), c.Category), due, c.Prize, c.Converted)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&noRates, "no-rates", false, "skip fetching exchange rates")
	return cmd
}

func newDeadlineCmd(st *state) *cobra.Command {
	var days, hours int
	cmd := &cobra.Command{
		Use:   "deadline <row>",
		Short: "Set a row's deadline relative to now",
		Example: `  gigboard deadline 0198c2a1 --days 3
  gigboard deadline 0198c2a1 --days 1 --hours 12`,
		Args: usage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 || hours < 0 {
				return fmt.Errorf("%w: --days and --hours must not be negative", errUsage)
			}
			l, err := st.openLedger(cmd)
			if err != nil {
				return err
			}
			row, err := resolveRow(l, args[0])
			if err != nil {
				return err
			}
			now := time.Now()
			if err := l.SetDeadline(cmd.Context(), row.ID, now, days, hours); err != nil {
				return err
			}
			updated, err := l.Row(row.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s due %s (%s)\n", shortID(row.ID),
				updated.Get(types.ColDeadline), deadline.Countdown(updated.Get(types.ColDeadline), now))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "days from now")
	cmd.Flags().IntVar(&hours, "hours", 0, "hours from now")
	return cmd
}
