package sweep

import (
	"errors"
	"fmt"
)

// Kind classifies sweep errors.
type Kind string

// Error kinds.
const (
	KindConfiguration Kind = "ConfigurationError"
	KindDiscovery     Kind = "DiscoveryError"
	KindArchiveWrite  Kind = "ArchiveWriteError"
	KindDisposal      Kind = "DisposalError"
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrDiscovery     = errors.New("discovery error")
	ErrArchiveWrite  = errors.New("archive write error")
	ErrDisposal      = errors.New("disposal error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindDiscovery:
		return ErrDiscovery
	case KindArchiveWrite:
		return ErrArchiveWrite
	case KindDisposal:
		return ErrDisposal
	default:
		return nil
	}
}

// Error is a failure attributed to one source directory (Dir is empty for
// sweep-wide failures).
type Error struct {
	Kind Kind
	Dir  string
	Err  error
}

func newError(kind Kind, dir string, err error) *Error {
	return &Error{Kind: kind, Dir: dir, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	if e.Dir == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}

	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Dir, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.Err}
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}

	return errs
}

// KindOf returns the kind of the first *Error in err's tree, or "".
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}

	return ""
}
