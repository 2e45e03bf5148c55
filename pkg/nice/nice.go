// Package nice lowers the scheduling priority of the running process.
package nice

import "errors"

// Default is the niceness stackzip runs at.
const Default = 15

// ErrOutOfRange is returned for values outside -20..19.
var ErrOutOfRange = errors.New("nice value must be between -20 and 19")

func validate(n int) error {
	if n < -20 || n > 19 {
		return ErrOutOfRange
	}

	return nil
}
