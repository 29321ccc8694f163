package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect calculation run history",
	Long:  "Commands for listing, viewing, and summarizing recorded calculation runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List calculation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Source: source,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		filter := store.RunFilter{Limit: 10000}
		if since > 0 {
			filter.CreatedAfter = time.Now().Add(-since)
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, running, complete, cancelled, failed)")
	runsListCmd.Flags().String("source", "", "filter by input source")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total       int
	Complete    int
	Failed      int
	Cancelled   int
	Other       int
	Records     int
	Diagnostics int
	AvgDurSecs  float64
}

func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var totalMS int64
	var durCount int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
		case model.RunStatusFailed:
			s.Failed++
		case model.RunStatusCancelled:
			s.Cancelled++
		default:
			s.Other++
		}

		if r.Result == nil {
			continue
		}
		s.Records += r.Result.Counters.RecordsRead
		s.Diagnostics += r.Result.Counters.Diagnostics
		if r.Status == model.RunStatusComplete {
			totalMS += r.Result.DurationMS
			durCount++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = float64(totalMS) / 1000 / float64(durCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tSTATUS\tRECORDS\tDIAGNOSTICS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t-----------\t-------\t--------")

	for _, r := range runs {
		records, diags, dur := "", "", ""
		if r.Result != nil {
			records = fmt.Sprint(r.Result.Counters.RecordsRead)
			diags = fmt.Sprint(r.Result.Counters.Diagnostics)
			dur = (time.Duration(r.Result.DurationMS) * time.Millisecond).Round(time.Millisecond).String()
		}

		source := filepath.Base(r.Input.Source)
		if len(source) > 30 {
			source = source[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			source,
			r.Status,
			records,
			diags,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Cancelled:\t%d\n", s.Cancelled)
	_, _ = fmt.Fprintf(w, "Other:\t%d\n", s.Other)
	_, _ = fmt.Fprintf(w, "Records read:\t%d\n", s.Records)
	_, _ = fmt.Fprintf(w, "Diagnostics:\t%d\n", s.Diagnostics)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
