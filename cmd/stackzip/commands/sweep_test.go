package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackzip/pkg/archive"
	"github.com/Sumatoshi-tech/stackzip/pkg/bucket"
	"github.com/Sumatoshi-tech/stackzip/pkg/catalog"
	"github.com/Sumatoshi-tech/stackzip/pkg/config"
	"github.com/Sumatoshi-tech/stackzip/pkg/sweep"
)

func TestSweepCommand_ArchivesMovesAndRecords(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "server_name: bits1\n")
	day := agedDay(5)
	fx.write(t, day, "a.json", "b.json", "c.json")
	fx.write(t, agedDay(1), "today.json", "today2.json")

	out, err := execute(t, context.Background(), NewSweepCommand(), "--config", fx.configPath, "--no-color")
	require.NoError(t, err)

	assert.FileExists(t, fx.artifactPath("bits1", day))
	assert.NoFileExists(t, fx.artifactPath("bits1", agedDay(1)))

	for _, name := range []string{"a.json", "b.json", "c.json"} {
		assert.FileExists(t, filepath.Join(fx.source, "archive", name))
		assert.NoFileExists(t, filepath.Join(fx.source, name))
	}

	assert.FileExists(t, filepath.Join(fx.source, "today.json"))
	assert.DirExists(t, filepath.Join(fx.source, "processed_archive"))

	assert.Contains(t, out, fx.source)
	assert.Contains(t, out, "1 new archives, 3 files archived")
	assert.Contains(t, out, catalog.StatusOK)

	cat, err := catalog.Open(fx.catalogPath)
	require.NoError(t, err)

	t.Cleanup(func() { cat.Close() })

	artifacts, err := cat.Artifacts(context.Background(), catalog.ArtifactFilter{})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "election", artifacts[0].Project)
	assert.Equal(t, 3, artifacts[0].Files)

	sweeps, err := cat.Sweeps(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sweeps, 1)
	assert.Equal(t, catalog.StatusOK, sweeps[0].Status)

	logData, err := os.ReadFile(fx.logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "archive written")
	assert.Contains(t, string(logData), "server=bits1")
}

func TestSweepCommand_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "")
	day := agedDay(4)
	fx.write(t, day, "a.json", "b.json")

	_, err := execute(t, context.Background(), NewSweepCommand(),
		"--config", fx.configPath, "-n", "bits9", "-d", "--codec", "lz4")
	require.NoError(t, err)

	lz4Artifact := filepath.Join(archive.LocalDir(fx.source), "bits9-election-"+day.Format(bucket.DateLayout)+".tar.lz4")
	assert.FileExists(t, lz4Artifact)
	assert.NoFileExists(t, filepath.Join(fx.source, "a.json"))
	assert.NoDirExists(t, filepath.Join(fx.source, "archive"))
}

func TestSweepCommand_ConfigurationError(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "")

	_, err := execute(t, context.Background(), NewSweepCommand(), "--config", fx.configPath)
	require.ErrorIs(t, err, config.ErrMissingServerName)
	assert.Equal(t, exitConfiguration, ExitCode(err))
}

func TestSweepCommand_FailureIsNonZeroEvenWhenIsolated(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "server_name: bits1\nfailure_policy: isolate\n")
	fx.write(t, agedDay(3), "a.json", "b.json")

	// A regular file where the artifact directory belongs makes the archive fail.
	require.NoError(t, os.WriteFile(filepath.Dir(fx.artifactPath("bits1", agedDay(3))), nil, 0o600))

	out, err := execute(t, context.Background(), NewSweepCommand(), "--config", fx.configPath, "--no-color")
	require.ErrorIs(t, err, sweep.ErrArchiveWrite)
	assert.Equal(t, exitFailure, ExitCode(err))
	assert.Contains(t, out, catalog.StatusFailed)
	assert.Contains(t, out, string(sweep.KindArchiveWrite))
	assert.FileExists(t, filepath.Join(fx.source, "a.json"))
}
