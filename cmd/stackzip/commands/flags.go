// Package commands implements CLI command handlers for stackzip.
package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackzip/pkg/config"
	"github.com/Sumatoshi-tech/stackzip/pkg/sweep"
)

// Exit codes.
const (
	exitFailure       = 1
	exitConfiguration = 2
)

// sweepBindings maps the shared sweep flags onto configuration keys.
var sweepBindings = []config.FlagBinding{
	{Key: "server_name", Flag: "name"},
	{Key: "run_hour", Flag: "time"},
	{Key: "dispose.delete", Flag: "delete"},
	{Key: "destination.mode", Flag: "archive", Value: config.DestinationVolume},
	{Key: "destination.archive_root", Flag: "archive-root"},
	{Key: "sources.discover", Flag: "discover"},
	{Key: "sources.stack_path", Flag: "stack-path"},
	{Key: "sources.manual_dir", Flag: "manual"},
	{Key: "sources.manual_name", Flag: "manual-name"},
	{Key: "sources.dirs", Flag: "dir"},
	{Key: "logging.name", Flag: "log-name"},
	{Key: "logging.level", Flag: "log-level"},
	{Key: "metrics.addr", Flag: "metrics-addr"},
	{Key: "archive.codec", Flag: "codec"},
	{Key: "failure_policy", Flag: "failure-policy"},
}

// addSweepFlags registers the flags shared by run and sweep. Their values are
// read back through viper, so only defaults for help output are given here.
func addSweepFlags(cmd *cobra.Command, configPath *string) {
	flags := cmd.Flags()

	flags.StringVar(configPath, "config", "", "Config file (default: stackzip.yaml in ., ./config, /etc/stackzip)")
	flags.StringP("name", "n", "", "Server name used in artifact names")
	flags.IntP("time", "t", config.DefaultRunHour, "Hour of the day (0-23) to run the daily sweep")
	flags.BoolP("delete", "d", false, "Delete archived files instead of moving them to <source>/archive")
	flags.BoolP("archive", "a", false, "Write artifacts to the archive volume instead of next to the source")
	flags.String("archive-root", config.DefaultArchiveRoot, "Archive volume root")
	flags.BoolP("discover", "m", false, "Discover source directories from running STACK collectors")
	flags.StringP("stack-path", "s", config.DefaultStackPath, "STACK install root")
	flags.StringP("manual", "M", "", "Archive a single non-STACK directory")
	flags.StringP("manual-name", "N", "", "Project name for the manual directory")
	flags.StringSlice("dir", nil, "Source directory to sweep (repeatable)")
	flags.StringP("log-name", "l", config.DefaultLogName, "Log file base name")
	flags.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.String("metrics-addr", "", "Serve /metrics, /healthz and /readyz on this address")
	flags.String("codec", config.DefaultCodec, "Archive codec: gzip, lz4")
	flags.String("failure-policy", config.DefaultFailurePolicy, "On sweep errors: exit, isolate")
}

func loadConfig(cmd *cobra.Command, configPath string) (*config.Config, error) {
	return config.LoadConfig(configPath, cmd.Flags(), sweepBindings...)
}

// ExitCode maps an error returned by a command to the process exit status.
// Configuration errors exit with 2, everything else with 1.
func ExitCode(err error) int {
	if errors.Is(err, sweep.ErrConfiguration) {
		return exitConfiguration
	}

	return exitFailure
}
