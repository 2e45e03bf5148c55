package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSweepsTotal        = "stackzip.sweeps.total"
	metricSweepDuration      = "stackzip.sweep.duration.seconds"
	metricArchivesTotal      = "stackzip.archives.total"
	metricFilesArchivedTotal = "stackzip.files.archived.total"
	metricFilesDisposedTotal = "stackzip.files.disposed.total"
	metricMarkersReapedTotal = "stackzip.markers.reaped.total"
	metricBucketsSkipped     = "stackzip.buckets.skipped.total"
	metricErrorsTotal        = "stackzip.errors.total"

	attrStatus  = "status"
	attrDispose = "mode"
	attrReason  = "reason"
	attrKind    = "kind"
	attrReused  = "reused"
)

// durationBucketBoundaries covers quick sweeps of empty directories up to
// hour-long runs over a backlog of large days.
var durationBucketBoundaries = []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800, 3600}

// SweepMetrics holds the OTel instruments recorded by a sweep. A nil
// *SweepMetrics is valid and records nothing.
type SweepMetrics struct {
	sweepsTotal        metric.Int64Counter
	sweepDuration      metric.Float64Histogram
	archivesTotal      metric.Int64Counter
	filesArchivedTotal metric.Int64Counter
	filesDisposedTotal metric.Int64Counter
	markersReapedTotal metric.Int64Counter
	bucketsSkipped     metric.Int64Counter
	errorsTotal        metric.Int64Counter
}

// NewSweepMetrics creates the sweep instruments from the given meter.
func NewSweepMetrics(mt metric.Meter) (*SweepMetrics, error) {
	var (
		sm  SweepMetrics
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&sm.sweepsTotal, metricSweepsTotal, "Completed sweeps", "{sweep}"},
		{&sm.archivesTotal, metricArchivesTotal, "Archive artifacts written or reused", "{archive}"},
		{&sm.filesArchivedTotal, metricFilesArchivedTotal, "Source files placed in an archive", "{file}"},
		{&sm.filesDisposedTotal, metricFilesDisposedTotal, "Source files deleted or moved", "{file}"},
		{&sm.markersReapedTotal, metricMarkersReapedTotal, "Processed marker files removed", "{file}"},
		{&sm.bucketsSkipped, metricBucketsSkipped, "Day buckets left for a later sweep", "{bucket}"},
		{&sm.errorsTotal, metricErrorsTotal, "Sweep errors by kind", "{error}"},
	}

	for _, c := range counters {
		*c.dst, err = mt.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}
	}

	sm.sweepDuration, err = mt.Float64Histogram(metricSweepDuration,
		metric.WithDescription("Sweep duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSweepDuration, err)
	}

	return &sm, nil
}

// RecordSweep records a finished sweep with its status and duration.
func (sm *SweepMetrics) RecordSweep(ctx context.Context, status string, duration time.Duration) {
	if sm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	sm.sweepsTotal.Add(ctx, 1, attrs)
	sm.sweepDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordArchive records one artifact covering files source files.
func (sm *SweepMetrics) RecordArchive(ctx context.Context, files int, reused bool) {
	if sm == nil {
		return
	}

	sm.archivesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool(attrReused, reused)))
	sm.filesArchivedTotal.Add(ctx, int64(files))
}

// RecordDisposed records files deleted or moved in the given mode.
func (sm *SweepMetrics) RecordDisposed(ctx context.Context, mode string, files int) {
	if sm == nil || files == 0 {
		return
	}

	sm.filesDisposedTotal.Add(ctx, int64(files), metric.WithAttributes(attribute.String(attrDispose, mode)))
}

// RecordReaped records removed marker files.
func (sm *SweepMetrics) RecordReaped(ctx context.Context, files int) {
	if sm == nil || files == 0 {
		return
	}

	sm.markersReapedTotal.Add(ctx, int64(files))
}

// RecordSkipped records a bucket that was not archived this sweep.
func (sm *SweepMetrics) RecordSkipped(ctx context.Context, reason string) {
	if sm == nil {
		return
	}

	sm.bucketsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String(attrReason, reason)))
}

// RecordError records a sweep error of the given kind.
func (sm *SweepMetrics) RecordError(ctx context.Context, kind string) {
	if sm == nil {
		return
	}

	sm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}
