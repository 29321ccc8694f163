package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/config"
)

// Set by -ldflags at build time.
var (
	version   = "dev"
	revision  = ""
	buildDate = ""
)

var (
	cfg     *config.Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:     "abimo",
	Short:   "Urban water balance calculator",
	Long:    "Computes the long-term mean annual runoff, infiltration and evaporation of urban parcels from a table of parcel attributes.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
