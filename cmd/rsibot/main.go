// Command rsibot runs RSI backtests on FX price history from the command
// line or serves the interactive dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "rsibot",
		Short: "RSI mean-reversion backtester for FX pairs",
		Long: `rsibot downloads hourly FX bars, computes a Wilder RSI and simulates a
long-only strategy that buys below one threshold and sells above another,
with a fixed-pip stop loss and risk-based position sizing.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default $RSIBOT_LOG_LEVEL or info)")

	rootCmd.AddCommand(runCmd(&logLevel))
	rootCmd.AddCommand(fetchCmd(&logLevel))
	rootCmd.AddCommand(serveCmd(&logLevel))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rsibot %s\n", version)
		},
	}
}
