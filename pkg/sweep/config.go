package sweep

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/stackzip/pkg/bucket"
	"github.com/Sumatoshi-tech/stackzip/pkg/dispose"
)

// FailurePolicy decides what a failing directory does to the rest of the run.
type FailurePolicy string

// Failure policies.
const (
	// FailExit stops the sweep at the first failing directory and makes the
	// scheduler stop.
	FailExit FailurePolicy = "exit"
	// FailIsolate skips the failing directory and keeps going.
	FailIsolate FailurePolicy = "isolate"
)

// Sentinel configuration errors.
var (
	ErrMissingServer        = errors.New("server name is required")
	ErrUnknownDisposal      = errors.New("unknown disposal mode")
	ErrUnknownFailurePolicy = errors.New("unknown failure policy")
)

// ParseFailurePolicy maps a config value to a FailurePolicy. Empty means exit.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", FailExit:
		return FailExit, nil
	case FailIsolate:
		return FailIsolate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFailurePolicy, s)
	}
}

// Config is the immutable configuration of every sweep, built once at startup.
type Config struct {
	ServerName    string
	Disposal      dispose.Mode
	Policy        bucket.Policy
	FailurePolicy FailurePolicy
	// Location is the time zone calendar days are computed in. Nil means local.
	Location *time.Location
}

// Validate reports the first configuration problem as a ConfigurationError.
func (c Config) Validate() error {
	if c.ServerName == "" {
		return newError(KindConfiguration, "", ErrMissingServer)
	}

	switch c.Disposal {
	case dispose.ModeDelete, dispose.ModeMove:
	default:
		return newError(KindConfiguration, "", fmt.Errorf("%w: %q", ErrUnknownDisposal, c.Disposal))
	}

	switch c.FailurePolicy {
	case FailExit, FailIsolate:
	default:
		return newError(KindConfiguration, "", fmt.Errorf("%w: %q", ErrUnknownFailurePolicy, c.FailurePolicy))
	}

	return nil
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}

	return c.Location
}
