package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/api"
	"github.com/urbanhydro/abimo/internal/metrics"
	"github.com/urbanhydro/abimo/internal/monitoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		prom := metrics.Init(metrics.BuildInfo{
			Version:   version,
			Revision:  revision,
			BuildDate: buildDate,
		})

		p, err := newPipeline(cfg, st, prom)
		if err != nil {
			return eris.Wrap(err, "invalid model parameters")
		}

		if cfg.Monitoring.Enabled {
			if st == nil {
				zap.L().Warn("monitoring needs a run store, skipping")
			} else {
				checker := monitoring.NewChecker(
					monitoring.NewCollector(st),
					monitoring.NewAlerter(cfg.Monitoring),
					cfg.Monitoring,
				)
				checker.OnSnapshot = prom.ObserveSnapshot
				go checker.Run(ctx)
			}
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := api.New(ctx, p, st, prom, api.Config{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MaxUploadMB:    cfg.Server.MaxUploadMB,
			WorkDir:        cfg.Server.WorkDir,
			Export:         cfg.Run.ExportResults,
			Input:          inputOptions(cfg),
		})
		return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
