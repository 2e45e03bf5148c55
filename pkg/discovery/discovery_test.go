package discovery_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackzip/pkg/discovery"
)

type fakeProcesses struct {
	cmdlines []string
	err      error
}

func (f fakeProcesses) Cmdlines(_ context.Context) ([]string, error) {
	return f.cmdlines, f.err
}

const (
	activeProject   = "election-5f1a2b3c4d5e6f7a8b9c0d1e"
	idleProject     = "climate-6a1a2b3c4d5e6f7a8b9c0d1e"
	deletedProject  = "old-delete-7a1a2b3c4d5e6f7a8b9c0d1e"
	activeProjectID = "5f1a2b3c4d5e6f7a8b9c0d1e"
)

func stackRoot(t *testing.T, projects ...string) string {
	t.Helper()

	root := t.TempDir()
	for _, p := range projects {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "data", p, "twitter", "archive"), 0o750))
	}

	require.NoError(t, os.MkdirAll(filepath.Join(root, "data", "short-1"), 0o750))

	return root
}

func TestStatic(t *testing.T) {
	t.Parallel()

	targets, err := discovery.Static{Dirs: []string{"/a/p-1", "/b/q-2"}}.Targets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []discovery.Target{{Dir: "/a/p-1"}, {Dir: "/b/q-2"}}, targets)

	_, err = discovery.Static{}.Targets(context.Background())
	assert.ErrorIs(t, err, discovery.ErrNoDirectories)
}

func TestManual(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	targets, err := discovery.Manual{Dir: dir, Project: "candidates"}.Targets(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.True(t, targets[0].SplitBySubIdentity)
	assert.Equal(t, "candidates", targets[0].Project)

	_, err = discovery.Manual{Dir: dir}.Targets(context.Background())
	require.ErrorIs(t, err, discovery.ErrManualName)

	_, err = discovery.Manual{Dir: filepath.Join(dir, "missing"), Project: "x"}.Targets(context.Background())
	assert.ErrorIs(t, err, discovery.ErrMissingDirectory)
}

func TestStack_FindsRunningProjects(t *testing.T) {
	t.Parallel()

	root := stackRoot(t, activeProject, idleProject, deletedProject)
	procs := fakeProcesses{cmdlines: []string{
		"python3 /home/bits/stack/__main__.py db collect start " + activeProjectID,
		"python3 /home/bits/stack/__main__.py db process " + "6a1a2b3c4d5e6f7a8b9c0d1e",
		"python3 something " + "7a1a2b3c4d5e6f7a8b9c0d1e collect",
	}}

	targets, err := discovery.Stack{Root: root, Processes: procs}.Targets(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, filepath.Join(root, "data", activeProject, "twitter", "archive"), targets[0].Dir)
	assert.Empty(t, targets[0].Project)
}

func TestStack_NoRunningProjects(t *testing.T) {
	t.Parallel()

	root := stackRoot(t, activeProject)

	_, err := discovery.Stack{Root: root, Processes: fakeProcesses{}}.Targets(context.Background())
	assert.ErrorIs(t, err, discovery.ErrNoActiveProjects)
}

func TestStack_MissingProjectData(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data", activeProject), 0o750))

	procs := fakeProcesses{cmdlines: []string{"collect " + activeProjectID}}

	_, err := discovery.Stack{Root: root, Processes: procs}.Targets(context.Background())
	assert.ErrorIs(t, err, discovery.ErrProjectData)
}

func TestStack_ProcessListingFails(t *testing.T) {
	t.Parallel()

	root := stackRoot(t, activeProject)
	boom := errors.New("boom")

	_, err := discovery.Stack{Root: root, Processes: fakeProcesses{err: boom}}.Targets(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSystemProcesses_ListsSomething(t *testing.T) {
	t.Parallel()

	cmdlines, err := discovery.SystemProcesses{}.Cmdlines(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cmdlines)
}
