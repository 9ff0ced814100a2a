package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OscarSR27/ESDML-Lab2/cmd/kws/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != "" {
			return output(cmd, build.Get())
		}
		fmt.Fprintln(cmd.OutOrStdout(), build.String())
		if verbose {
			fmt.Fprintf(cmd.OutOrStdout(), "  config: %s\n", configPath())
		}
		return nil
	},
}

func configPath() string {
	if cfg, err := getConfig(); err == nil {
		return cfg.Path()
	}
	return "(unavailable)"
}
