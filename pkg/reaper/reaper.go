// Package reaper ages out processed-marker files left by the collector.
package reaper

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Sumatoshi-tech/stackzip/pkg/bucket"
	"github.com/Sumatoshi-tech/stackzip/pkg/source"
)

// Result summarises one reap.
type Result struct {
	Buckets int
	Removed int
	Kept    int
}

// Reap deletes every marker whose modification day is more than one calendar
// day before today. Markers from today or yesterday are kept. All deletions
// are attempted; failures are joined.
func Reap(markers []source.File, today time.Time) (Result, error) {
	var (
		res  Result
		errs error
	)

	for _, b := range bucket.ByDay(markers, today.Location()) {
		if !bucket.Past(b.Day, today) {
			res.Kept += len(b.Files)

			continue
		}

		res.Buckets++

		for _, f := range b.Files {
			err := os.Remove(f.Path)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = errors.Join(errs, fmt.Errorf("remove marker %s: %w", f.Name(), err))

				continue
			}

			res.Removed++
		}
	}

	return res, errs
}
