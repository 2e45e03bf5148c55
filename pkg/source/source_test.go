package source_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackzip/pkg/source"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := map[string]source.Kind{
		"tweets-20240101.json":             source.KindCandidate,
		"tweets-20240101-processed.json":   source.KindMarker,
		"srv-proj-2024-01-01.tar.gz":       source.KindArtifact,
		"srv-proj-2024-01-01.tar.lz4":      source.KindArtifact,
		"processed.tar.gz":                 source.KindMarker,
		"stream-output-candidate-abc.json": source.KindCandidate,
	}

	for name, want := range cases {
		assert.Equal(t, want, source.Classify(name), name)
	}
}

func TestScan_ClassifiesAndSkipsDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, name := range []string{"b.json", "a.json", "a-processed.json", "x.tar.gz"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o600))
	}

	require.NoError(t, os.Mkdir(filepath.Join(dir, source.ArchiveDirName), 0o750))

	listing, err := source.Scan(dir)
	require.NoError(t, err)

	require.Len(t, listing.Candidates, 2)
	assert.Equal(t, "a.json", listing.Candidates[0].Name())
	assert.Equal(t, "b.json", listing.Candidates[1].Name())
	assert.Equal(t, int64(4), listing.Candidates[0].Size)

	require.Len(t, listing.Markers, 1)
	assert.Equal(t, "a-processed.json", listing.Markers[0].Name())

	require.Len(t, listing.Artifacts, 1)
}

func TestScan_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := source.Scan(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScan_NotADirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := source.Scan(path)
	assert.ErrorIs(t, err, source.ErrNotDirectory)
}

func TestProjectName(t *testing.T) {
	t.Parallel()

	project, err := source.ProjectName("/home/bits/stack/data/election-5a1b2c3d4e5f/twitter/archive")
	require.NoError(t, err)
	assert.Equal(t, "election", project)

	_, err = source.ProjectName("/home/bits/stack/data/plain/twitter/archive")
	require.ErrorIs(t, err, source.ErrProjectUnparseable)

	_, err = source.ProjectName("/srv/multi-a/data/proj-b/archive")
	require.ErrorIs(t, err, source.ErrProjectUnparseable)

	_, err = source.ProjectName("/srv/-leading/archive")
	assert.ErrorIs(t, err, source.ErrProjectUnparseable)
}
