package reaper_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackzip/pkg/reaper"
	"github.com/Sumatoshi-tech/stackzip/pkg/source"
)

func TestReap_AgesOutOldMarkersRegardlessOfCount(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local)

	mk := func(name string, daysAgo int) source.File {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, nil, 0o600))

		return source.File{Path: path, ModTime: now.AddDate(0, 0, -daysAgo)}
	}

	markers := []source.File{
		mk("old-processed-1", 5),
		mk("single-processed", 2),
		mk("yesterday-processed", 1),
		mk("today-processed", 0),
	}

	res, err := reaper.Reap(markers, now)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, 2, res.Kept)
	assert.Equal(t, 2, res.Buckets)

	assert.NoFileExists(t, markers[0].Path)
	assert.NoFileExists(t, markers[1].Path)
	assert.FileExists(t, markers[2].Path)
	assert.FileExists(t, markers[3].Path)
}

func TestReap_AlreadyRemovedIsNotAnError(t *testing.T) {
	t.Parallel()

	now := time.Now()
	gone := source.File{Path: filepath.Join(t.TempDir(), "gone-processed"), ModTime: now.AddDate(0, 0, -3)}

	res, err := reaper.Reap([]source.File{gone}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
}
