package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gigboard/internal/currency"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

func newRatesCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "rates [amount...]",
		Short: "Show exchange rates or convert amounts",
		Long: `Without arguments, show the rate of every currency the converter
recognizes. With amounts such as "$1,200" or "€45", convert each into the
reference currency.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := st.rateTable(cmd.Context())
			if table == nil {
				return fmt.Errorf("%w: check rates.url", types.ErrRatesAbsent)
			}
			conv := st.converter()
			if len(args) > 0 {
				return printConversions(cmd, st, conv, table, args)
			}

			codes := []string{conv.Target}
			for _, c := range currency.Codes() {
				if c != conv.Target {
					codes = append(codes, c)
				}
			}
			sort.Strings(codes[1:])
			shown := map[string]float64{}
			for _, c := range codes {
				if r, ok := table[c]; ok {
					shown[c] = r
				}
			}
			if st.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), shown)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tPER USD")
			for _, c := range codes {
				if r, ok := shown[c]; ok {
					fmt.Fprintf(tw, "%s\t%g\n", c, r)
				}
			}
			return tw.Flush()
		},
	}
}

func printConversions(cmd *cobra.Command, st *state, conv currency.Converter, table types.RateTable, amounts []string) error {
	type conversion struct {
		Amount    string `json:"amount"`
		Currency  string `json:"currency"`
		Converted string `json:"converted"`
	}
	var out []conversion
	for _, a := range amounts {
		out = append(out, conversion{
			Amount:    a,
			Currency:  currency.Detect(a),
			Converted: conv.Convert(a, table),
		})
	}
	if st.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), out)
	}
	for _, c := range out {
		converted := c.Converted
		if converted == "" {
			converted = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) = %s\n", strings.TrimSpace(c.Amount), c.Currency, converted)
	}
	return nil
}
