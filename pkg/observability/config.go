// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for stackzip.
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies the application execution mode.
type AppMode string

const (
	// ModeDaemon is the long-running scheduled sweeper.
	ModeDaemon AppMode = "daemon"
	// ModeOnce is a single sweep started from the command line.
	ModeOnce AppMode = "once"
	// ModeCLI is any other command (catalog, version).
	ModeCLI AppMode = "cli"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "stackzip"

	// defaultShutdownTimeoutSec is the default shutdown timeout in seconds.
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "production").
	Environment string

	// ServerName is the archiving host identity, attached to every log record.
	ServerName string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables OTLP export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio (0.0 to 1.0).
	// Zero keeps the parent-based always-on default.
	SampleRatio float64

	// Prometheus enables the pull exporter; Providers.MetricsHandler is set.
	Prometheus bool

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// LogOutput receives log records. Nil means stderr.
	LogOutput io.Writer

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	var level slog.Level

	err := level.UnmarshalText([]byte(name))
	if err != nil {
		return slog.LevelInfo
	}

	return level
}
