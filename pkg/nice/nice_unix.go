//go:build unix

package nice

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Set changes the niceness of the current process to n. Zero leaves it alone.
func Set(n int) error {
	if n == 0 {
		return nil
	}

	err := validate(n)
	if err != nil {
		return err
	}

	err = unix.Setpriority(unix.PRIO_PROCESS, 0, n)
	if err != nil {
		return fmt.Errorf("setpriority %d: %w", n, err)
	}

	return nil
}
