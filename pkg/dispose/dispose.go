// Package dispose removes or relocates source files after they are archived.
package dispose

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/stackzip/pkg/fsutil"
	"github.com/Sumatoshi-tech/stackzip/pkg/source"
)

// Mode selects what happens to archived source files.
type Mode string

// Disposal modes.
const (
	ModeMove   Mode = "move"
	ModeDelete Mode = "delete"
)

// Outcome summarises one disposal.
type Outcome struct {
	Mode Mode
	// Target is the archive subfolder in move mode.
	Target string
	Done   int
}

// Disposer applies a disposal mode to archived files of one source directory.
type Disposer struct {
	Mode Mode
}

// Dispose deletes files, or moves them into <dir>/archive keeping their base
// names. It stops at the first failure; Outcome.Done counts completed files.
func (d Disposer) Dispose(dir string, files []source.File) (Outcome, error) {
	if d.Mode == ModeDelete {
		return deleteAll(files)
	}

	return moveAll(dir, files)
}

func deleteAll(files []source.File) (Outcome, error) {
	out := Outcome{Mode: ModeDelete}

	for _, f := range files {
		err := os.Remove(f.Path)
		if err != nil {
			return out, fmt.Errorf("delete %s: %w", f.Name(), err)
		}

		out.Done++
	}

	return out, nil
}

func moveAll(dir string, files []source.File) (Outcome, error) {
	target := filepath.Join(dir, source.ArchiveDirName)
	out := Outcome{Mode: ModeMove, Target: target}

	err := os.MkdirAll(target, fsutil.DirPerm)
	if err != nil {
		return out, fmt.Errorf("create %s: %w", target, err)
	}

	for _, f := range files {
		err = fsutil.MoveFile(f.Path, filepath.Join(target, f.Name()))
		if err != nil {
			return out, fmt.Errorf("move %s: %w", f.Name(), err)
		}

		out.Done++
	}

	return out, nil
}
