package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/mesh-intelligence/gigboard/internal/ledger"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// shortIDLen is how much of a row ID the table shows.
const shortIDLen = 8

// palette maps display color names to terminal colors.
var palette = map[string]color.Attribute{
	"amber":   color.FgYellow,
	"blue":    color.FgBlue,
	"emerald": color.FgGreen,
	"red":     color.FgRed,
	"violet":  color.FgMagenta,
	"indigo":  color.FgCyan,
	"pink":    color.FgHiMagenta,
	"zinc":    color.FgHiBlack,
}

func paint(name, s string) string {
	attr, ok := palette[name]
	if !ok {
		attr = palette["zinc"]
	}
	return color.New(attr).Sprint(s)
}

// cell renders one value, coloring status and category tags.
func cell(col types.Column, value string) string {
	switch col.Type {
	case types.ColumnStatus:
		return paint(types.Status(value).Color(), value)
	case types.ColumnCategory:
		return paint(types.Category(value).Color(), value)
	}
	return value
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// printRows writes rows as an aligned table under the column titles.
func printRows(w io.Writer, columns []types.Column, rows []types.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"ID"}
	for _, c := range columns {
		header = append(header, strings.ToUpper(c.Title))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		line := []string{shortID(r.ID)}
		if r.Archived {
			line[0] += "*"
		}
		for _, c := range columns {
			line = append(line, cell(c, r.Get(c.ID)))
		}
		fmt.Fprintln(tw, strings.Join(line, "\t"))
	}
	return tw.Flush()
}

// printColumns writes the column layout.
func printColumns(w io.Writer, columns []types.Column) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE")
	for _, c := range columns {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Title, c.Type)
	}
	return tw.Flush()
}

// rowJSON is the --json shape of a row.
type rowJSON struct {
	ID       string            `json:"id"`
	Archived bool              `json:"archived"`
	Values   map[string]string `json:"values"`
}

func rowsJSON(rows []types.Row) []rowJSON {
	out := make([]rowJSON, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowJSON{ID: r.ID, Archived: r.Archived, Values: r.Values})
	}
	return out
}

// resolveRow finds a row by full ID or unique ID prefix.
func resolveRow(l *ledger.Ledger, ref string) (types.Row, error) {
	if ref == "" {
		return types.Row{}, fmt.Errorf("%w: row ID required", errUsage)
	}
	if r, err := l.Row(ref); err == nil {
		return r, nil
	}
	var found []types.Row
	for _, r := range l.Rows() {
		if strings.HasPrefix(r.ID, ref) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return types.Row{}, fmt.Errorf("row %s: %w", ref, types.ErrNotFound)
	case 1:
		return found[0], nil
	}
	return types.Row{}, fmt.Errorf("%w: row prefix %q matches %d rows", errUsage, ref, len(found))
}

// columnAliases name the built-in columns by their record field.
var columnAliases = map[string]string{
	types.FieldNameName:     types.ColName,
	types.FieldNameCategory: types.ColCategory,
	types.FieldNameLink:     types.ColLink,
	types.FieldNameDeadline: types.ColDeadline,
	types.FieldNamePrize:    types.ColPrize,
	types.FieldNameStatus:   types.ColStatus,
	"converted":             types.ColConverted,
}

// resolveColumn finds a column by ID, field alias or case-insensitive title.
func resolveColumn(l *ledger.Ledger, ref string) (types.Column, error) {
	columns := l.Columns()
	if c, ok := types.FindColumn(columns, ref); ok {
		return c, nil
	}
	if id, ok := columnAliases[strings.ToLower(ref)]; ok {
		if c, ok := types.FindColumn(columns, id); ok {
			return c, nil
		}
	}
	var found []types.Column
	for _, c := range columns {
		if strings.EqualFold(c.Title, ref) {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return types.Column{}, fmt.Errorf("column %s: %w", ref, types.ErrColumnNotFound)
	case 1:
		return found[0], nil
	}
	return types.Column{}, fmt.Errorf("%w: %d columns are titled %q, use the ID", errUsage, len(found), ref)
}

// confirm asks req's question on the command's streams unless yes is set.
func confirm(in io.Reader, out io.Writer, yes bool, title, message string) (bool, error) {
	if yes {
		return true, nil
	}
	fmt.Fprintf(out, "%s\n%s [y/N]: ", color.New(color.Bold).Sprint(title), message)
	answer, err := readLine(in)
	if err != nil && answer == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// readLine reads up to the next newline one byte at a time so that later
// prompts on the same reader see the rest of the input.
func readLine(in io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				return strings.TrimRight(sb.String(), "\r"), nil
			}
			sb.WriteByte(buf[0])
		}
		if err != nil {
			return sb.String(), err
		}
	}
}
