package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanhydro/abimo/internal/config"
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/pipeline"
)

var runFlags struct {
	protocol string
	summary  string
	format   string
	sheet    string
	workers  int
	export   bool
}

var runCmd = &cobra.Command{
	Use:   "run <input> [output]",
	Short: "Compute the water balance of an input table",
	Long: `Reads the parcel table <input> (dBase, shapefile, CSV, XLSX, a ZIP archive
of one of them, or an http(s)/ftp URL), computes every parcel and writes the
result table [output] (default <input>_out.dbf) with a protocol next to it.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req := pipeline.Request{
			Source:   args[0],
			Protocol: runFlags.protocol,
			Summary:  runFlags.summary,
			Export:   cfg.Run.ExportResults,
			Input:    inputOptions(cfg),
			Config:   cfgFile,
		}
		if len(args) == 2 {
			req.Output = args[1]
		}
		if runFlags.format != "" {
			req.Input.Format = runFlags.format
		}
		if runFlags.sheet != "" {
			req.Input.Sheet = runFlags.sheet
		}
		if cmd.Flags().Changed("export") {
			req.Export = runFlags.export
		}
		if runFlags.workers > 0 {
			cfg.Run.Workers = runFlags.workers
		}

		res, err := runBatch(ctx, cfg, req)
		if res != nil {
			printResult(os.Stdout, res)
		}
		return err
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.protocol, "protocol", "", "protocol file (default <output>.log)")
	f.StringVar(&runFlags.summary, "summary", "", "write a YAML run summary to this file")
	f.StringVar(&runFlags.format, "format", "", "input format: dbf, shp, csv or xlsx (default from extension)")
	f.StringVar(&runFlags.sheet, "sheet", "", "XLSX worksheet (default first sheet)")
	f.IntVar(&runFlags.workers, "workers", 0, "parallel workers (default from config)")
	f.BoolVar(&runFlags.export, "export", false, "store per-parcel results in the run store")
	rootCmd.AddCommand(runCmd)
}

// runBatch runs one request with the store configured in c.
func runBatch(ctx context.Context, c *config.Config, req pipeline.Request) (*model.RunResult, error) {
	st, err := initStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
	}

	p, err := newPipeline(c, st, nil)
	if err != nil {
		return nil, eris.Wrap(err, "invalid model parameters")
	}
	return p.Run(ctx, req)
}

func printResult(out io.Writer, r *model.RunResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", r.Status)
	if r.Status == model.RunStatusComplete {
		_, _ = fmt.Fprintf(w, "Output:\t%s\n", r.Output)
	}
	_, _ = fmt.Fprintf(w, "Protocol:\t%s\n", r.Protocol)
	_, _ = fmt.Fprintf(w, "Records read:\t%d\n", r.Counters.RecordsRead)
	_, _ = fmt.Fprintf(w, "Records written:\t%d\n", r.Counters.RecordsWritten)
	_, _ = fmt.Fprintf(w, "Diagnostics:\t%d\n", r.Counters.Diagnostics)
	if r.Exported > 0 {
		_, _ = fmt.Fprintf(w, "Exported:\t%d\n", r.Exported)
	}
	_, _ = fmt.Fprintf(w, "Duration:\t%dms\n", r.DurationMS)
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "Error:\t%s\n", r.Error)
	}
	_ = w.Flush()
}
