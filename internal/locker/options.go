package locker

import (
	"time"

	"grablock/internal/grab"
	"grablock/internal/input"
)

// Options selects the modules and timings of one lock.
type Options struct {
	// Module configuration strings, "<name>:<args>". Empty selects the
	// first registered module.
	Auth       string
	Background string
	Cursor     string
	Input      string

	Reducer        input.Config
	GrabRetryDelay time.Duration

	// DisableCoreDumps drops RLIMIT_CORE before the password buffer
	// exists.
	DisableCoreDumps bool
}

// DefaultOptions returns the default modules and timings.
func DefaultOptions() Options {
	return Options{
		Reducer:          input.DefaultConfig(),
		GrabRetryDelay:   grab.DefaultRetryDelay,
		DisableCoreDumps: true,
	}
}
