// Package main provides the entry point for the stackzip daemon and CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackzip/cmd/stackzip/commands"
	"github.com/Sumatoshi-tech/stackzip/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "stackzip",
		Short: "Daily archiver for STACK collector output",
		Long: `stackzip bundles the raw output files of STACK collectors into one
compressed archive per project and calendar day, then deletes or moves the
originals.

Commands:
  run       Sweep now, then once a day at the configured hour
  sweep     Run exactly one sweep and exit
  catalog   List recorded sweeps and artifacts`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewSweepCommand())
	rootCmd.AddCommand(commands.NewCatalogCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
