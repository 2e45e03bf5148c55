package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Sumatoshi-tech/stackzip/pkg/archive"
	"github.com/Sumatoshi-tech/stackzip/pkg/bucket"
	"github.com/Sumatoshi-tech/stackzip/pkg/catalog"
	"github.com/Sumatoshi-tech/stackzip/pkg/config"
	"github.com/Sumatoshi-tech/stackzip/pkg/discovery"
	"github.com/Sumatoshi-tech/stackzip/pkg/dispose"
	"github.com/Sumatoshi-tech/stackzip/pkg/fsutil"
	"github.com/Sumatoshi-tech/stackzip/pkg/nice"
	"github.com/Sumatoshi-tech/stackzip/pkg/observability"
	"github.com/Sumatoshi-tech/stackzip/pkg/sweep"
	"github.com/Sumatoshi-tech/stackzip/pkg/version"
)

const shutdownTimeout = 10 * time.Second

// ErrArchiveRootUnmounted is reported by /readyz when the archive volume
// disappears while the daemon is running.
var ErrArchiveRootUnmounted = errors.New("archive root is not mounted")

// app is one assembled stackzip process: telemetry, catalog, sweeper and the
// optional metrics server.
type app struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
	catalog   *catalog.Catalog
	sweeper   *sweep.Sweeper
	server    *observability.DiagnosticsServer
	closeLog  func() error
}

func newApp(ctx context.Context, cfg *config.Config, mode observability.AppMode) (*app, error) {
	out, closeLog, err := observability.OpenLogOutput(cfg.LogOutput())
	if err != nil {
		return nil, fmt.Errorf("open log output: %w", err)
	}

	a := &app{cfg: cfg, closeLog: closeLog}

	a.providers, err = observability.Init(observabilityConfig(cfg, mode, out))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init observability: %w", err), closeLog())
	}

	a.logger = a.providers.Logger

	err = a.assemble(ctx)
	if err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	return a, nil
}

func observabilityConfig(cfg *config.Config, mode observability.AppMode, out io.Writer) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.ServerName = cfg.ServerName
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.OTLP.Endpoint
	obsCfg.OTLPInsecure = cfg.OTLP.Insecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.OTLP.Headers)
	obsCfg.Prometheus = cfg.Metrics.Addr != ""
	obsCfg.LogLevel = observability.ParseLevel(cfg.Logging.Level)
	obsCfg.LogJSON = cfg.Logging.Format == config.LogFormatJSON
	obsCfg.LogOutput = out

	return obsCfg
}

func (a *app) assemble(ctx context.Context) error {
	metrics, err := observability.NewSweepMetrics(a.providers.Meter)
	if err != nil {
		return err
	}

	var recorder sweep.Recorder

	if a.cfg.Catalog.Path != "" {
		a.catalog, err = openCatalog(a.cfg.Catalog.Path)
		if err != nil {
			return err
		}

		recorder = a.catalog
	}

	codec, err := archive.CodecByName(a.cfg.Archive.Codec)
	if err != nil {
		return err
	}

	archiver := archive.New(codec)
	archiver.StagingDir = a.cfg.Destination.StagingDir

	dest, err := newDestination(ctx, a.cfg)
	if err != nil {
		return err
	}

	policy, err := sweep.ParseFailurePolicy(a.cfg.FailurePolicy)
	if err != nil {
		return err
	}

	disposal := dispose.ModeMove
	if a.cfg.Dispose.Delete {
		disposal = dispose.ModeDelete
	}

	a.sweeper, err = sweep.New(sweep.Config{
		ServerName:    a.cfg.ServerName,
		Disposal:      disposal,
		Policy:        bucket.Policy{ForceSingleAfterDays: a.cfg.Archive.ForceSingleAfterDays},
		FailurePolicy: policy,
	}, sweep.Deps{
		Discoverer:  newDiscoverer(a.cfg),
		Destination: dest,
		Archiver:    archiver,
		Recorder:    recorder,
		Metrics:     metrics,
		Logger:      a.logger,
		Tracer:      a.providers.Tracer,
	})
	if err != nil {
		return err
	}

	err = nice.Set(a.cfg.Nice)
	if err != nil {
		a.logger.WarnContext(ctx, "could not lower process priority", "nice", a.cfg.Nice, "error", err)
	}

	if a.cfg.Metrics.Addr != "" {
		return a.serve(ctx)
	}

	return nil
}

func openCatalog(path string) (*catalog.Catalog, error) {
	err := os.MkdirAll(filepath.Dir(path), fsutil.DirPerm)
	if err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	return catalog.Open(path)
}

// newDiscoverer picks the source selection: a manual directory wins over
// STACK discovery, which wins over the static directory list.
func newDiscoverer(cfg *config.Config) discovery.Discoverer {
	switch {
	case cfg.Sources.ManualDir != "":
		return discovery.Manual{Dir: cfg.Sources.ManualDir, Project: cfg.Sources.ManualName}
	case cfg.Sources.Discover:
		return discovery.Stack{
			Root:      cfg.Sources.StackPath,
			Processes: discovery.SystemProcesses{},
			Match:     cfg.Discovery.CollectorMatch,
		}
	default:
		return discovery.Static{Dirs: cfg.Sources.Dirs}
	}
}

func newDestination(ctx context.Context, cfg *config.Config) (archive.Destination, error) {
	switch cfg.Destination.Mode {
	case config.DestinationVolume:
		return archive.VolumeDestination{Root: cfg.Destination.ArchiveRoot}, nil
	case config.DestinationS3:
		s3cfg := cfg.Destination.S3

		client, err := archive.NewS3Client(ctx, archive.S3Options{
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}

		return archive.S3Destination{
			Client:  client,
			Bucket:  s3cfg.Bucket,
			Prefix:  s3cfg.Prefix,
			Staging: cfg.Destination.StagingDir,
		}, nil
	default:
		return archive.LocalDestination{}, nil
	}
}

func (a *app) readyChecks() []observability.ReadyCheck {
	var checks []observability.ReadyCheck

	if a.catalog != nil {
		checks = append(checks, a.catalog.Ping)
	}

	if a.cfg.Destination.Mode == config.DestinationVolume {
		root := a.cfg.Destination.ArchiveRoot

		checks = append(checks, func(context.Context) error {
			info, err := os.Stat(root)
			if err != nil || !info.IsDir() {
				return fmt.Errorf("%w: %s", ErrArchiveRootUnmounted, root)
			}

			return nil
		})
	}

	return checks
}

func (a *app) serve(ctx context.Context) error {
	srv, err := observability.NewDiagnosticsServer(ctx, a.cfg.Metrics.Addr,
		a.providers.MetricsHandler, a.logger, a.readyChecks()...)
	if err != nil {
		return err
	}

	a.server = srv
	a.logger.InfoContext(ctx, "metrics server listening", "addr", srv.Addr())

	return nil
}

// close stops the server, the catalog and telemetry, in that order.
func (a *app) close(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		errs = append(errs, a.server.Close(shutdownCtx))

		cancel()
	}

	if a.catalog != nil {
		errs = append(errs, a.catalog.Close())
	}

	if a.providers.Shutdown != nil {
		errs = append(errs, a.providers.Shutdown(ctx))
	}

	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
	}

	return errors.Join(errs...)
}
