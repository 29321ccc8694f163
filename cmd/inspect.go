package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanhydro/abimo/internal/dbase"
)

var inspectFlags struct {
	compare  string
	maxDiffs int
	rows     int
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.dbf>",
	Short: "Show the layout of a dBase table or compare two tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := dbase.ReadFile(args[0])
		if err != nil {
			return err
		}

		if inspectFlags.compare == "" {
			formatTable(os.Stdout, t, inspectFlags.rows)
			return nil
		}

		want, err := dbase.ReadFile(inspectFlags.compare)
		if err != nil {
			return err
		}
		diffs := dbase.CompareValues(want, t, inspectFlags.maxDiffs)
		if len(diffs) == 0 {
			fmt.Fprintln(os.Stdout, "Tables match.")
			return nil
		}
		formatDifferences(os.Stdout, diffs)
		return eris.Errorf("%d differences", len(diffs))
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFlags.compare, "compare", "", "reference table to compare values against")
	inspectCmd.Flags().IntVar(&inspectFlags.maxDiffs, "max-diffs", 50, "stop after this many differences (0 for all)")
	inspectCmd.Flags().IntVar(&inspectFlags.rows, "rows", 5, "number of records to print")
	rootCmd.AddCommand(inspectCmd)
}

func formatTable(out io.Writer, t *dbase.Table, rows int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", len(t.Records))
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "FIELD\tTYPE\tLENGTH\tDECIMALS")
	for _, f := range t.Fields {
		_, _ = fmt.Fprintf(w, "%s\t%c\t%d\t%d\n", f.Name, f.Type, f.Length, f.Decimals)
	}
	_ = w.Flush()

	if rows <= 0 || len(t.Records) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i, name := range t.FieldNames() {
		if i > 0 {
			_, _ = fmt.Fprint(w, "\t")
		}
		_, _ = fmt.Fprint(w, name)
	}
	_, _ = fmt.Fprintln(w, "\t")
	for _, rec := range t.Records[:min(rows, len(t.Records))] {
		for i, v := range rec {
			if i > 0 {
				_, _ = fmt.Fprint(w, "\t")
			}
			_, _ = fmt.Fprint(w, v)
		}
		_, _ = fmt.Fprintln(w, "\t")
	}
	_ = w.Flush()
}

func formatDifferences(out io.Writer, diffs []dbase.Difference) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tFIELD\tWANT\tGOT")
	for _, d := range diffs {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.Row+1, d.Field, d.Want, d.Got)
	}
	_ = w.Flush()
}
