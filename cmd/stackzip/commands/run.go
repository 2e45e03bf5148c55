package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackzip/pkg/observability"
	"github.com/Sumatoshi-tech/stackzip/pkg/scheduler"
	"github.com/Sumatoshi-tech/stackzip/pkg/sweep"
	"github.com/Sumatoshi-tech/stackzip/pkg/version"
)

// RunCommand holds configuration and dependencies for the daemon command.
type RunCommand struct {
	configPath string
	once       bool

	clock scheduler.Clock
}

// NewRunCommand creates the daemon command.
func NewRunCommand() *cobra.Command {
	return newRunCommandWithDeps(scheduler.SystemClock)
}

func newRunCommandWithDeps(clock scheduler.Clock) *cobra.Command {
	rc := &RunCommand{clock: clock}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sweep now, then once a day at the configured hour",
		Long: `Run a sweep immediately, then check the clock every schedule.check_interval
and sweep again the first time the local hour equals --time on a new day.

With failure_policy exit (default) the first sweep error stops the process
with a non-zero status. With isolate the failing directory is logged and
skipped and the daemon keeps running.`,
		Args: cobra.NoArgs,
		RunE: rc.run,
	}

	addSweepFlags(cmd, &rc.configPath)
	cmd.Flags().BoolVar(&rc.once, "once", false, "Run a single sweep and exit")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, rc.configPath)
	if err != nil {
		return err
	}

	mode := observability.ModeDaemon
	if rc.once {
		mode = observability.ModeOnce
	}

	a, err := newApp(ctx, cfg, mode)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := a.close(ctx)
		if closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "shutdown: %v\n", closeErr)
		}
	}()

	a.logger.InfoContext(ctx, "stackzip started",
		"version", version.Version,
		"run_hour", cfg.RunHour,
		"destination", cfg.Destination.Mode,
		"delete", cfg.Dispose.Delete,
		"failure_policy", cfg.FailurePolicy,
	)

	if rc.once {
		err = a.sweeper.Job(ctx)
	} else {
		sched := &scheduler.Scheduler{
			Hour:     cfg.RunHour,
			Interval: cfg.Schedule.CheckInterval,
			Clock:    rc.clock,
			Job:      a.sweeper.Job,
			Logger:   a.logger,
		}

		err = sched.Run(ctx)
	}

	if ctx.Err() != nil {
		a.logger.InfoContext(ctx, "stackzip interrupted")

		return nil
	}

	if err != nil {
		a.logger.ErrorContext(ctx, "stackzip stopped", "error", err, "kind", string(sweep.KindOf(err)))

		return err
	}

	return nil
}
