package serialconn

import (
	"errors"
	"fmt"
)

var (
	// ErrPathRequired is returned by Connect for an empty port path.
	ErrPathRequired = errors.New("port path is required")

	// ErrMockDisabled is wrapped in an OpenError when the simulated source is
	// requested while disabled by configuration.
	ErrMockDisabled = errors.New("simulated source is disabled")
)

// OpenError reports that a source could not be opened. The manager is left
// disconnected.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }
