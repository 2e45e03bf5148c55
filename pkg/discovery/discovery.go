// Package discovery supplies the source directories a sweep works on.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Sentinel errors.
var (
	ErrNoDirectories    = errors.New("no source directories configured")
	ErrMissingDirectory = errors.New("source directory does not exist")
	ErrManualName       = errors.New("manual directory requires a project name")
)

// Target is one source directory to sweep.
type Target struct {
	Dir string
	// Project is the project label. Empty means derive it from Dir.
	Project string
	// SplitBySubIdentity buckets files per sub-identity token before by day.
	SplitBySubIdentity bool
}

// Discoverer lists the targets of one sweep. It is called once per sweep so
// that directories appearing or disappearing between sweeps are picked up.
type Discoverer interface {
	Targets(ctx context.Context) ([]Target, error)
}

// Static returns a fixed list of directories whose projects are derived from
// their paths.
type Static struct {
	Dirs []string
}

// Targets implements Discoverer.
func (s Static) Targets(_ context.Context) ([]Target, error) {
	if len(s.Dirs) == 0 {
		return nil, ErrNoDirectories
	}

	targets := make([]Target, 0, len(s.Dirs))
	for _, dir := range s.Dirs {
		targets = append(targets, Target{Dir: dir})
	}

	return targets, nil
}

// Manual is a single operator-named directory holding non-STACK data. Its
// files are split per sub-identity before bucketing.
type Manual struct {
	Dir     string
	Project string
}

// Validate checks that the directory exists and a project label is set.
func (m Manual) Validate() error {
	if m.Project == "" {
		return ErrManualName
	}

	info, err := os.Stat(m.Dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrMissingDirectory, m.Dir)
	}

	return nil
}

// Targets implements Discoverer.
func (m Manual) Targets(_ context.Context) ([]Target, error) {
	err := m.Validate()
	if err != nil {
		return nil, err
	}

	return []Target{{Dir: m.Dir, Project: m.Project, SplitBySubIdentity: true}}, nil
}
