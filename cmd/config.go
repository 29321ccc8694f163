package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/urbanhydro/abimo/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeConfig(os.Stdout, cfg)
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the model parameters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := cfg.Model.Parameters(); err != nil {
			return eris.Wrap(err, "invalid model parameters")
		}
		cmd.Println("Configuration is valid.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func writeConfig(w io.Writer, c *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return eris.Wrap(err, "encode config")
	}
	return eris.Wrap(enc.Close(), "encode config")
}
