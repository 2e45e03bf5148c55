package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackzip/pkg/observability"
)

// SweepCommand runs one sweep and prints its report.
type SweepCommand struct {
	configPath string
	noColor    bool
}

// NewSweepCommand creates the one-shot sweep command.
func NewSweepCommand() *cobra.Command {
	sc := &SweepCommand{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run exactly one sweep and exit",
		Long: `Run exactly one sweep over every source directory and print a per-directory
summary. The exit status is non-zero when any directory failed, whatever the
failure policy.`,
		Args: cobra.NoArgs,
		RunE: sc.run,
	}

	addSweepFlags(cmd, &sc.configPath)
	cmd.Flags().BoolVar(&sc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (sc *SweepCommand) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, sc.configPath)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, observability.ModeOnce)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := a.close(ctx)
		if closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "shutdown: %v\n", closeErr)
		}
	}()

	report, err := a.sweeper.Run(ctx)
	if report != nil {
		renderReport(cmd.OutOrStdout(), report, sc.noColor)
	}

	return err
}
