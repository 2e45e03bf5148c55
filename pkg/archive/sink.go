package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/stackzip/pkg/fsutil"
)

// LocalDirName is the sibling directory that holds artifacts in local mode.
const LocalDirName = "tar_files"

// ErrDestinationUnavailable is returned when a sink's root directory is gone,
// typically an archive volume that is no longer mounted.
var ErrDestinationUnavailable = errors.New("archive destination is not available")

// Sink is the destination that owns committed artifacts.
type Sink interface {
	// Location describes where name is (or would be) stored.
	Location(name string) string
	// Prepare makes the destination ready to accept artifacts. It is idempotent.
	Prepare(ctx context.Context) error
	// StagingDir is where artifacts are built before commit. Empty means the
	// archiver's own staging directory (or the OS temp dir).
	StagingDir() string
	// Open returns the stored artifact, or an error wrapping fs.ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Commit atomically publishes the staged file under name and consumes it.
	Commit(ctx context.Context, stagedPath, name string) error
}

// DirSink stores artifacts in a filesystem directory.
type DirSink struct {
	Dir string
	// Root, when set, must already be a directory. Prepare creates Dir below
	// it but never Root itself.
	Root string
}

var _ Sink = (*DirSink)(nil)

// LocalDir returns the local-mode destination for a source directory: a
// tar_files directory beside it.
func LocalDir(sourceDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(sourceDir)), LocalDirName)
}

// VolumeDir returns the archive-volume destination for a project.
func VolumeDir(root, server, project string) string {
	return filepath.Join(root, server, project)
}

// Location implements Sink.
func (s *DirSink) Location(name string) string {
	return filepath.Join(s.Dir, name)
}

// Prepare implements Sink.
func (s *DirSink) Prepare(_ context.Context) error {
	if s.Root != "" {
		info, statErr := os.Stat(s.Root)
		if statErr != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrDestinationUnavailable, s.Root)
		}
	}

	err := os.MkdirAll(s.Dir, fsutil.DirPerm)
	if err != nil {
		return fmt.Errorf("create destination %s: %w", s.Dir, err)
	}

	return nil
}

// StagingDir implements Sink. Staging beside the destination keeps the final
// rename on one device.
func (s *DirSink) StagingDir() string {
	return s.Dir
}

// Open implements Sink.
func (s *DirSink) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.Location(name))
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}

	return f, nil
}

// Commit implements Sink.
func (s *DirSink) Commit(_ context.Context, stagedPath, name string) error {
	final := s.Location(name)

	_, err := os.Stat(final)
	if err == nil {
		return fmt.Errorf("%w: %s", fs.ErrExist, final)
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat artifact: %w", err)
	}

	err = fsutil.MoveFile(stagedPath, final)
	if err != nil {
		return err
	}

	return fsutil.SyncDir(s.Dir)
}
