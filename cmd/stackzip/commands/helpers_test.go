package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackzip/pkg/archive"
	"github.com/Sumatoshi-tech/stackzip/pkg/bucket"
)

// fixture is a throwaway STACK-like layout with a config file pointing at it.
type fixture struct {
	root        string
	source      string
	configPath  string
	catalogPath string
	logPath     string
}

func newFixture(t *testing.T, extra string) fixture {
	t.Helper()

	root := t.TempDir()
	fx := fixture{
		root:        root,
		source:      filepath.Join(root, "election-5f1a", "raw"),
		configPath:  filepath.Join(root, "stackzip.yaml"),
		catalogPath: filepath.Join(root, "state", "catalog.db"),
		logPath:     filepath.Join(root, "logs", "stackzip.log"),
	}

	require.NoError(t, os.MkdirAll(fx.source, 0o750))

	content := fmt.Sprintf(`nice: 0
sources:
  dirs: [%q]
logging:
  output: %q
catalog:
  path: %q
%s`, fx.source, fx.logPath, fx.catalogPath, extra)

	require.NoError(t, os.WriteFile(fx.configPath, []byte(content), 0o600))

	return fx
}

// agedDay returns local noon n days ago.
func agedDay(n int) time.Time {
	d := time.Now().AddDate(0, 0, -n)

	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.Local)
}

func (fx fixture) write(t *testing.T, day time.Time, names ...string) {
	t.Helper()

	for _, name := range names {
		path := filepath.Join(fx.source, name)
		require.NoError(t, os.WriteFile(path, []byte(`{"id":"`+name+`"}`), 0o600))
		require.NoError(t, os.Chtimes(path, day, day))
	}
}

func (fx fixture) artifactPath(server string, day time.Time) string {
	name := server + "-election-" + day.Format(bucket.DateLayout) + ".tar.gz"

	return filepath.Join(archive.LocalDir(fx.source), name)
}

func execute(t *testing.T, ctx context.Context, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)

	return out.String(), err
}
