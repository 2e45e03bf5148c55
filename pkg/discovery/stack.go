package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// DefaultCollectorMatch is the command-line fragment of a STACK collector.
const DefaultCollectorMatch = "collect"

// minProjectDirLen filters out directories that cannot carry a project id.
const minProjectDirLen = 25

// Sentinel errors.
var (
	ErrNoActiveProjects = errors.New("no running STACK projects found")
	ErrProjectData      = errors.New("cannot find data for STACK project")
)

// ProcessLister returns the command lines of running processes.
type ProcessLister interface {
	Cmdlines(ctx context.Context) ([]string, error)
}

// SystemProcesses lists processes from the OS process table.
type SystemProcesses struct{}

// Cmdlines implements ProcessLister. Processes that exit while being listed
// are skipped.
func (SystemProcesses) Cmdlines(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	cmdlines := make([]string, 0, len(procs))

	for _, p := range procs {
		cmdline, cmdErr := p.CmdlineWithContext(ctx)
		if cmdErr != nil || cmdline == "" {
			continue
		}

		cmdlines = append(cmdlines, cmdline)
	}

	return cmdlines, nil
}

// Stack discovers the archive directories of STACK projects whose collector
// is currently running. Projects live in <Root>/data/<name>-<id>/, and their
// raw output in twitter/archive below it.
type Stack struct {
	Root      string
	Processes ProcessLister
	// Match is the fragment identifying collector processes.
	Match string
}

// Targets implements Discoverer.
func (s Stack) Targets(ctx context.Context) ([]Target, error) {
	projects, err := s.projectDirs()
	if err != nil {
		return nil, err
	}

	cmdlines, err := s.Processes.Cmdlines(ctx)
	if err != nil {
		return nil, err
	}

	match := s.Match
	if match == "" {
		match = DefaultCollectorMatch
	}

	var targets []Target

	for _, name := range projects {
		if !running(cmdlines, match, projectID(name)) {
			continue
		}

		dir := filepath.Join(s.Root, "data", name, "twitter", "archive")

		info, statErr := os.Stat(dir)
		if statErr != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrProjectData, name)
		}

		targets = append(targets, Target{Dir: dir})
	}

	if len(targets) == 0 {
		return nil, ErrNoActiveProjects
	}

	return targets, nil
}

func (s Stack) projectDirs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, "data"))
	if err != nil {
		return nil, fmt.Errorf("read stack data dir: %w", err)
	}

	var names []string

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.Contains(name, "-") || strings.Contains(name, "delete") {
			continue
		}

		if len(name) < minProjectDirLen {
			continue
		}

		names = append(names, name)
	}

	return names, nil
}

func projectID(name string) string {
	_, rest, _ := strings.Cut(name, "-")
	id, _, _ := strings.Cut(rest, "-")

	return id
}

func running(cmdlines []string, match, id string) bool {
	if id == "" {
		return false
	}

	for _, cmdline := range cmdlines {
		if strings.Contains(cmdline, match) && strings.Contains(cmdline, id) {
			return true
		}
	}

	return false
}
