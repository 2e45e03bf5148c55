package sweep

import (
	"time"

	"github.com/Sumatoshi-tech/stackzip/pkg/archive"
)

// DirReport is the outcome of one source directory.
type DirReport struct {
	Dir     string
	Project string
	// Files counts candidate files seen, Days the buckets they formed.
	Files         int
	Days          int
	Skipped       int
	Artifacts     []archive.Result
	FilesDisposed int
	MarkersReaped int
	Err           error
}

// Report is the outcome of one sweep.
type Report struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Dirs       []DirReport
	Err        error
}

// Archives counts artifacts written or reused.
func (r *Report) Archives() int {
	n := 0
	for _, d := range r.Dirs {
		n += len(d.Artifacts)
	}

	return n
}

// NewArchives counts artifacts written by this sweep.
func (r *Report) NewArchives() int {
	n := 0

	for _, d := range r.Dirs {
		for _, a := range d.Artifacts {
			if !a.Reused {
				n++
			}
		}
	}

	return n
}

// FilesArchived counts source files covered by the sweep's artifacts.
func (r *Report) FilesArchived() int {
	n := 0

	for _, d := range r.Dirs {
		for _, a := range d.Artifacts {
			n += a.Files
		}
	}

	return n
}

// FilesDisposed counts deleted or moved source files.
func (r *Report) FilesDisposed() int {
	n := 0
	for _, d := range r.Dirs {
		n += d.FilesDisposed
	}

	return n
}

// MarkersReaped counts removed marker files.
func (r *Report) MarkersReaped() int {
	n := 0
	for _, d := range r.Dirs {
		n += d.MarkersReaped
	}

	return n
}

// Failed reports whether any directory or the sweep itself failed.
func (r *Report) Failed() bool {
	return r.Err != nil
}
