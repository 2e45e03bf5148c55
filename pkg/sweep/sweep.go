// Package sweep runs one archiving pass over every discovered source
// directory: scan, bucket by day, archive eligible buckets, dispose of the
// archived originals and age out processed markers.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/stackzip/pkg/archive"
	"github.com/Sumatoshi-tech/stackzip/pkg/bucket"
	"github.com/Sumatoshi-tech/stackzip/pkg/catalog"
	"github.com/Sumatoshi-tech/stackzip/pkg/discovery"
	"github.com/Sumatoshi-tech/stackzip/pkg/dispose"
	"github.com/Sumatoshi-tech/stackzip/pkg/fsutil"
	"github.com/Sumatoshi-tech/stackzip/pkg/observability"
	"github.com/Sumatoshi-tech/stackzip/pkg/reaper"
	"github.com/Sumatoshi-tech/stackzip/pkg/safeconv"
	"github.com/Sumatoshi-tech/stackzip/pkg/source"
)

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("missing sweep dependency")

// Recorder persists sweeps and artifacts. Failures are logged, never fatal.
type Recorder interface {
	BeginSweep(ctx context.Context, s catalog.Sweep) error
	FinishSweep(ctx context.Context, s catalog.Sweep) error
	RecordArtifact(ctx context.Context, a catalog.Artifact) error
}

// Deps are the collaborators of a Sweeper. Recorder, Metrics, Logger, Tracer
// and Now are optional.
type Deps struct {
	Discoverer  discovery.Discoverer
	Destination archive.Destination
	Archiver    *archive.Archiver
	Recorder    Recorder
	Metrics     *observability.SweepMetrics
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Now         func() time.Time
}

// Sweeper runs sweeps with a fixed configuration.
type Sweeper struct {
	cfg      Config
	deps     Deps
	disposer dispose.Disposer
}

// New validates cfg and deps and returns a Sweeper.
func New(cfg Config, deps Deps) (*Sweeper, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	switch {
	case deps.Discoverer == nil:
		return nil, newError(KindConfiguration, "", fmt.Errorf("%w: discoverer", ErrMissingDependency))
	case deps.Destination == nil:
		return nil, newError(KindConfiguration, "", fmt.Errorf("%w: destination", ErrMissingDependency))
	case deps.Archiver == nil:
		return nil, newError(KindConfiguration, "", fmt.Errorf("%w: archiver", ErrMissingDependency))
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	if deps.Tracer == nil {
		deps.Tracer = nooptrace.NewTracerProvider().Tracer("stackzip")
	}

	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Sweeper{
		cfg:      cfg,
		deps:     deps,
		disposer: dispose.Disposer{Mode: cfg.Disposal},
	}, nil
}

// Config returns the sweeper's configuration.
func (s *Sweeper) Config() Config {
	return s.cfg
}

// Job runs one sweep for the scheduler. Under the isolate policy directory
// failures are only logged and the returned error is nil.
func (s *Sweeper) Job(ctx context.Context) error {
	report, err := s.Run(ctx)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if s.cfg.FailurePolicy == FailIsolate {
		s.deps.Logger.WarnContext(observability.WithSweepID(ctx, report.ID),
			"sweep finished with errors, continuing", "error", err)

		return nil
	}

	return err
}

// Run performs one sweep. The report is always returned; the error joins
// every directory failure.
func (s *Sweeper) Run(ctx context.Context) (*Report, error) {
	report := &Report{ID: uuid.NewString(), StartedAt: s.deps.Now()}

	ctx = observability.WithSweepID(ctx, report.ID)

	ctx, span := s.deps.Tracer.Start(ctx, "stackzip.sweep",
		trace.WithAttributes(attribute.String("sweep.id", report.ID)))
	defer span.End()

	log := s.deps.Logger
	today := report.StartedAt.In(s.cfg.location())

	log.InfoContext(ctx, "sweep started", "today", today.Format(bucket.DateLayout))
	s.beginRecord(ctx, report)

	var errs []error

	targets, err := s.deps.Discoverer.Targets(ctx)
	if err != nil {
		errs = append(errs, s.fail(ctx, newError(KindDiscovery, "", err)))
	}

	for _, target := range targets {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())

			break
		}

		dr, dirErr := s.sweepDir(ctx, target, today)
		report.Dirs = append(report.Dirs, dr)

		if dirErr == nil {
			continue
		}

		if ctx.Err() != nil {
			errs = append(errs, dirErr)

			break
		}

		errs = append(errs, s.fail(ctx, dirErr))

		if s.cfg.FailurePolicy == FailExit {
			break
		}
	}

	report.FinishedAt = s.deps.Now()
	report.Err = errors.Join(errs...)

	status := catalog.StatusOK
	if report.Err != nil {
		status = catalog.StatusFailed

		span.RecordError(report.Err)
		span.SetStatus(codes.Error, "sweep failed")
	}

	span.SetAttributes(
		attribute.Int("sweep.directories", len(report.Dirs)),
		attribute.Int("sweep.archives", report.Archives()),
	)

	s.deps.Metrics.RecordSweep(ctx, status, report.FinishedAt.Sub(report.StartedAt))
	s.finishRecord(ctx, report, status)

	log.InfoContext(ctx, "sweep finished",
		"status", status,
		"directories", len(report.Dirs),
		"archives", report.Archives(),
		"new_archives", report.NewArchives(),
		"files_archived", report.FilesArchived(),
		"files_disposed", report.FilesDisposed(),
		"markers_reaped", report.MarkersReaped(),
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	return report, report.Err
}

// fail logs and counts err and returns it unchanged.
func (s *Sweeper) fail(ctx context.Context, err error) error {
	kind := KindOf(err)

	s.deps.Metrics.RecordError(ctx, string(kind))
	s.deps.Logger.ErrorContext(ctx, "sweep error", "kind", string(kind), "error", err)

	return err
}

func (s *Sweeper) sweepDir(ctx context.Context, target discovery.Target, today time.Time) (DirReport, error) {
	dr := DirReport{Dir: target.Dir, Project: target.Project}

	ctx, span := s.deps.Tracer.Start(ctx, "stackzip.sweep.directory",
		trace.WithAttributes(attribute.String("dir", target.Dir)))
	defer span.End()

	fail := func(kind Kind, err error) (DirReport, error) {
		dirErr := newError(kind, target.Dir, err)
		dr.Err = dirErr

		span.RecordError(dirErr)
		span.SetStatus(codes.Error, string(kind))

		return dr, dirErr
	}

	if dr.Project == "" {
		project, err := source.ProjectName(target.Dir)
		if err != nil {
			return fail(KindDiscovery, err)
		}

		dr.Project = project
	}

	listing, err := source.Scan(target.Dir)
	if err != nil {
		return fail(KindDiscovery, err)
	}

	err = os.MkdirAll(filepath.Join(target.Dir, source.ProcessedArchiveDirName), fsutil.DirPerm)
	if err != nil {
		return fail(KindDisposal, fmt.Errorf("create processed archive dir: %w", err))
	}

	loc := s.cfg.location()

	var buckets []bucket.Bucket
	if target.SplitBySubIdentity {
		buckets = bucket.BySubIdentityAndDay(listing.Candidates, loc)
	} else {
		buckets = bucket.ByDay(listing.Candidates, loc)
	}

	dr.Files = len(listing.Candidates)
	dr.Days = len(buckets)

	log := s.deps.Logger.With("dir", target.Dir, "project", dr.Project)
	log.InfoContext(ctx, "directory scanned",
		"files", dr.Files, "days", dr.Days, "markers", len(listing.Markers), "artifacts", len(listing.Artifacts))

	sink := s.deps.Destination.SinkFor(target.Dir, s.cfg.ServerName, dr.Project)

	for _, b := range buckets {
		if ctx.Err() != nil {
			return dr, ctx.Err()
		}

		ok, reason := s.cfg.Policy.Evaluate(b, today)
		if !ok {
			dr.Skipped++
			s.deps.Metrics.RecordSkipped(ctx, string(reason))
			log.DebugContext(ctx, "bucket skipped",
				"date", b.Date(), "sub_identity", b.SubIdentity, "files", len(b.Files), "reason", string(reason))

			continue
		}

		res, archErr := s.deps.Archiver.Archive(ctx, archive.Request{
			Parts: archive.NameParts{
				Server:      s.cfg.ServerName,
				Project:     dr.Project,
				SubIdentity: b.SubIdentity,
				Date:        b.Date(),
			},
			Files: b.Files,
			Sink:  sink,
		})
		if errors.Is(archErr, archive.ErrDestinationUnavailable) {
			return fail(KindConfiguration, archErr)
		}

		if archErr != nil {
			return fail(KindArchiveWrite, archErr)
		}

		dr.Artifacts = append(dr.Artifacts, res)
		s.deps.Metrics.RecordArchive(ctx, res.Files, res.Reused)
		s.recordArtifact(ctx, target.Dir, dr.Project, b, res)

		if res.Reused {
			log.InfoContext(ctx, "archive already present",
				"name", res.Name, "location", res.Location, "files", res.Files)
		} else {
			log.InfoContext(ctx, "archive written",
				"name", res.Name, "location", res.Location, "files", res.Files,
				"size", humanize.Bytes(safeconv.MustInt64ToUint64(res.Bytes)), "reason", string(reason))
		}

		outcome, dispErr := s.disposer.Dispose(target.Dir, b.Files)
		dr.FilesDisposed += outcome.Done
		s.deps.Metrics.RecordDisposed(ctx, string(outcome.Mode), outcome.Done)

		if dispErr != nil {
			return fail(KindDisposal, dispErr)
		}

		log.InfoContext(ctx, "files disposed", "mode", string(outcome.Mode), "files", outcome.Done)
	}

	reaped, err := reaper.Reap(listing.Markers, today)
	dr.MarkersReaped = reaped.Removed
	s.deps.Metrics.RecordReaped(ctx, reaped.Removed)

	if reaped.Removed > 0 {
		log.InfoContext(ctx, "markers reaped", "removed", reaped.Removed, "kept", reaped.Kept)
	}

	if err != nil {
		return fail(KindDisposal, err)
	}

	return dr, nil
}

func (s *Sweeper) beginRecord(ctx context.Context, report *Report) {
	if s.deps.Recorder == nil {
		return
	}

	err := s.deps.Recorder.BeginSweep(ctx, catalog.Sweep{ID: report.ID, StartedAt: report.StartedAt})
	if err != nil {
		s.deps.Logger.WarnContext(ctx, "catalog: begin sweep", "error", err)
	}
}

func (s *Sweeper) finishRecord(ctx context.Context, report *Report, status string) {
	if s.deps.Recorder == nil {
		return
	}

	rec := catalog.Sweep{
		ID:            report.ID,
		StartedAt:     report.StartedAt,
		FinishedAt:    report.FinishedAt,
		Status:        status,
		Directories:   len(report.Dirs),
		Archives:      report.Archives(),
		FilesArchived: report.FilesArchived(),
		FilesDisposed: report.FilesDisposed(),
		MarkersReaped: report.MarkersReaped(),
	}
	if report.Err != nil {
		rec.Error = report.Err.Error()
	}

	// The sweep context may already be cancelled on shutdown.
	err := s.deps.Recorder.FinishSweep(context.WithoutCancel(ctx), rec)
	if err != nil {
		s.deps.Logger.WarnContext(ctx, "catalog: finish sweep", "error", err)
	}
}

func (s *Sweeper) recordArtifact(ctx context.Context, dir, project string, b bucket.Bucket, res archive.Result) {
	if s.deps.Recorder == nil {
		return
	}

	err := s.deps.Recorder.RecordArtifact(ctx, catalog.Artifact{
		SweepID:     observability.SweepID(ctx),
		Name:        res.Name,
		Location:    res.Location,
		SourceDir:   dir,
		Project:     project,
		SubIdentity: b.SubIdentity,
		Day:         b.Date(),
		Files:       res.Files,
		Bytes:       res.Bytes,
		SHA256:      res.SHA256,
		Reused:      res.Reused,
		CreatedAt:   s.deps.Now(),
	})
	if err != nil {
		s.deps.Logger.WarnContext(ctx, "catalog: record artifact", "name", res.Name, "error", err)
	}
}
