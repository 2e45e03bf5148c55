package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const logFilePerm = 0o640

// OpenLogOutput opens the log destination named by target. "stderr", "-" and
// "" select standard error; anything else is a file opened for appending and
// created when missing. The returned closer must be called on shutdown.
func OpenLogOutput(target string) (io.Writer, func() error, error) {
	switch target {
	case "", "-", "stderr":
		return os.Stderr, func() error { return nil }, nil
	case "stdout":
		return os.Stdout, func() error { return nil }, nil
	}

	err := os.MkdirAll(filepath.Dir(target), 0o750)
	if err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFilePerm)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return f, f.Close, nil
}
