package commands

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackzip/pkg/config"
	"github.com/Sumatoshi-tech/stackzip/pkg/observability"
)

// stopClock cancels the run on the first wait, after the immediate sweep.
type stopClock struct {
	cancel context.CancelFunc
}

func (c stopClock) Now() time.Time { return time.Now() }

func (c stopClock) After(time.Duration) <-chan time.Time {
	c.cancel()

	return nil
}

func TestRunCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := NewRunCommand()

	for flag, short := range map[string]string{
		"name": "n", "time": "t", "delete": "d", "archive": "a", "discover": "m",
		"stack-path": "s", "manual": "M", "manual-name": "N", "log-name": "l",
	} {
		f := cmd.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, short, f.Shorthand, flag)
	}

	for _, flag := range []string{"config", "dir", "once", "metrics-addr", "codec"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

func TestRunCommand_OnceDeletes(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "server_name: bits1\n")
	day := agedDay(6)
	fx.write(t, day, "a.json", "b.json")

	_, err := execute(t, context.Background(), NewRunCommand(), "--config", fx.configPath, "--once", "-d")
	require.NoError(t, err)

	assert.FileExists(t, fx.artifactPath("bits1", day))
	assert.NoFileExists(t, filepath.Join(fx.source, "a.json"))
	assert.NoFileExists(t, filepath.Join(fx.source, "b.json"))
}

func TestRunCommand_SweepsImmediatelyAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "server_name: bits1\n")
	day := agedDay(3)
	fx.write(t, day, "a.json", "b.json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := execute(t, ctx, newRunCommandWithDeps(stopClock{cancel: cancel}), "--config", fx.configPath, "-t", "23")
	require.NoError(t, err)

	assert.FileExists(t, fx.artifactPath("bits1", day))
}

func TestRunCommand_ExitPolicyStopsWithError(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "server_name: bits1\n")
	missing := filepath.Join(fx.root, "gone-1", "raw")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := execute(t, ctx, newRunCommandWithDeps(stopClock{cancel: cancel}),
		"--config", fx.configPath, "--dir", missing)
	require.Error(t, err)
	assert.Equal(t, exitFailure, ExitCode(err))
}

func TestRunCommand_VolumeModeRequiresMountedRoot(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "server_name: bits1\n")

	_, err := execute(t, context.Background(), NewRunCommand(),
		"--config", fx.configPath, "--once", "-a", "--archive-root", filepath.Join(fx.root, "unmounted"))
	require.ErrorIs(t, err, config.ErrArchiveRootMissing)
	assert.Equal(t, exitConfiguration, ExitCode(err))
}

func TestApp_ServesProbesAndMetrics(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "server_name: bits1\nmetrics:\n  addr: 127.0.0.1:0\n")
	fx.write(t, agedDay(3), "a.json", "b.json")

	cfg, err := config.LoadConfig(fx.configPath, nil)
	require.NoError(t, err)

	ctx := context.Background()

	a, err := newApp(ctx, cfg, observability.ModeDaemon)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, a.close(ctx)) })

	require.NotNil(t, a.server)
	require.NoError(t, a.sweeper.Job(ctx))

	get := func(path string) (int, string) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+a.server.Addr()+path, http.NoBody)
		require.NoError(t, reqErr)

		resp, doErr := http.DefaultClient.Do(req)
		require.NoError(t, doErr)

		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		require.NoError(t, readErr)

		return resp.StatusCode, string(body)
	}

	code, body := get(observability.PathHealth)
	assert.Equal(t, http.StatusOK, code)

	var health map[string]string

	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health["status"])

	code, _ = get(observability.PathReady)
	assert.Equal(t, http.StatusOK, code)

	code, body = get(observability.PathMetrics)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(body, "stackzip_archives_total"), body)
}

func TestApp_ReadyFailsWhenArchiveRootDisappears(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "volume")
	require.NoError(t, os.Mkdir(root, 0o750))

	fx := newFixture(t, "server_name: bits1\ndestination:\n  mode: volume\n  archive_root: "+root+"\n")

	cfg, err := config.LoadConfig(fx.configPath, nil)
	require.NoError(t, err)

	a := &app{cfg: cfg}
	checks := a.readyChecks()
	require.Len(t, checks, 1)
	require.NoError(t, checks[0](context.Background()))

	require.NoError(t, os.Remove(root))
	require.ErrorIs(t, checks[0](context.Background()), ErrArchiveRootUnmounted)
}
