package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gapfill",
		Short: "Fill short and medium gaps in hourly environmental sensor data",
		Long: `gapfill scans hourly sensor tables for runs of missing readings and fills them:
runs of up to LINEAR_MAX_GAP hours by linear interpolation, runs of up to
SPLINE_MAX_GAP hours by a cubic spline through the neighbouring readings.
Longer runs are reported and left missing.

Policy settings are read from the environment (and .env when present).`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newImputeCmd(),
		newGapsCmd(),
		newGenerateCmd(),
	)
	return rootCmd
}
