package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/stackzip/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.SweepMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	sm, err := observability.NewSweepMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return sm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics, attr attribute.KeyValue) int64 {
	t.Helper()

	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)

	var total int64

	for _, dp := range sum.DataPoints {
		if attr.Key != "" {
			val, found := dp.Attributes.Value(attr.Key)
			if !found || val != attr.Value {
				continue
			}
		}

		total += dp.Value
	}

	return total
}

func TestSweepMetrics_RecordSweep(t *testing.T) {
	t.Parallel()

	sm, reader := setupTestMeter(t)
	ctx := context.Background()

	sm.RecordSweep(ctx, "ok", 2*time.Second)
	sm.RecordSweep(ctx, "failed", time.Second)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "stackzip.sweeps.total"), attribute.String("status", "ok")))
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "stackzip.sweeps.total"), attribute.KeyValue{}))
	require.NotNil(t, findMetric(rm, "stackzip.sweep.duration.seconds"))
}

func TestSweepMetrics_FileCounters(t *testing.T) {
	t.Parallel()

	sm, reader := setupTestMeter(t)
	ctx := context.Background()

	sm.RecordArchive(ctx, 3, false)
	sm.RecordArchive(ctx, 2, true)
	sm.RecordDisposed(ctx, "move", 5)
	sm.RecordDisposed(ctx, "delete", 0)
	sm.RecordReaped(ctx, 4)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "stackzip.archives.total"), attribute.KeyValue{}))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "stackzip.archives.total"), attribute.Bool("reused", true)))
	assert.Equal(t, int64(5), sumOf(t, findMetric(rm, "stackzip.files.archived.total"), attribute.KeyValue{}))
	assert.Equal(t, int64(5), sumOf(t, findMetric(rm, "stackzip.files.disposed.total"), attribute.String("mode", "move")))
	assert.Equal(t, int64(4), sumOf(t, findMetric(rm, "stackzip.markers.reaped.total"), attribute.KeyValue{}))
}

func TestSweepMetrics_SkipsAndErrors(t *testing.T) {
	t.Parallel()

	sm, reader := setupTestMeter(t)
	ctx := context.Background()

	sm.RecordSkipped(ctx, "too_recent")
	sm.RecordSkipped(ctx, "single_file")
	sm.RecordSkipped(ctx, "too_recent")
	sm.RecordError(ctx, "ArchiveWriteError")

	rm := collectMetrics(t, reader)

	skipped := findMetric(rm, "stackzip.buckets.skipped.total")
	assert.Equal(t, int64(2), sumOf(t, skipped, attribute.String("reason", "too_recent")))
	assert.Equal(t, int64(1), sumOf(t, skipped, attribute.String("reason", "single_file")))
	assert.Equal(t, int64(1),
		sumOf(t, findMetric(rm, "stackzip.errors.total"), attribute.String("kind", "ArchiveWriteError")))
}

func TestSweepMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var sm *observability.SweepMetrics

	ctx := context.Background()

	assert.NotPanics(t, func() {
		sm.RecordSweep(ctx, "ok", time.Second)
		sm.RecordArchive(ctx, 1, false)
		sm.RecordDisposed(ctx, "delete", 1)
		sm.RecordReaped(ctx, 1)
		sm.RecordSkipped(ctx, "too_recent")
		sm.RecordError(ctx, "DisposalError")
	})
}

func TestNewSweepMetrics_WithNoopMeter(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	sm, err := observability.NewSweepMetrics(providers.Meter)
	require.NoError(t, err)
	assert.NotNil(t, sm)

	sm.RecordSweep(context.Background(), "ok", time.Millisecond)
}
