package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gigboard/internal/snapshot"
)

func newExportCmd(st *state) *cobra.Command {
	var output, board string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the board to a JSON file",
		Long: `Write the columns and rows of the board to a JSON file named after the
board and today's date, or to the path given with --output ("-" for
standard output).`,
		Args: usage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := st.openLedger(cmd)
			if err != nil {
				return err
			}
			now := time.Now()
			snap := l.Export(now)
			if output == "-" {
				return snapshot.Encode(cmd.OutOrStdout(), snap)
			}
			if output == "" {
				output = snapshot.FileName(board, now)
			}
			if err := writeFileAtomic(output, func(w io.Writer) error {
				return snapshot.Encode(w, snap)
			}); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(snap.Rows), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, - for stdout")
	cmd.Flags().StringVar(&board, "board", snapshot.DefaultBoard, "board name used in the default file name")
	return cmd
}

func newImportCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the board with an exported JSON file",
		Long: `Replace the local columns and rows with those of an exported file and
show the result. The import is a preview: neither the rows nor the column
layout are written back, so the next command shows the stored board again.`,
		Args: usage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			defer f.Close()
			snap, err := snapshot.Decode(f)
			if err != nil {
				return err
			}

			l, err := st.openLedger(cmd)
			if err != nil {
				return err
			}
			ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), st.flags.yes, "Import",
				fmt.Sprintf("Replace the board with %d rows from %s?", len(snap.Rows), filepath.Base(args[0])))
			if err != nil {
				return err
			}
			if !ok {
				return errAborted
			}
			if err := l.Import(cmd.Context(), snap); err != nil {
				return err
			}
			if st.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), rowsJSON(l.Rows()))
			}
			return printRows(cmd.OutOrStdout(), l.Columns(), l.Rows())
		},
	}
}

// writeFileAtomic writes path through a temp file in the same directory and
// renames it into place.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
