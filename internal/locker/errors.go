package locker

import (
	"errors"
	"fmt"
	"strings"

	"grablock/internal/auth"
	"grablock/internal/background"
	"grablock/internal/cursor"
	"grablock/internal/feedback"
	"grablock/internal/grab"
	"grablock/internal/input"
	"grablock/internal/instance"
	"grablock/internal/module"
	"grablock/internal/security"
)

// Error categories. Every fatal error returned by Session.Run is
// classified into one of these.
var (
	// ErrConfig is a bad or missing module configuration.
	ErrConfig = errors.New("configuration error")

	// ErrResourceBusy means another client owns the keyboard or
	// pointer, or another locker is running.
	ErrResourceBusy = errors.New("resource busy")

	// ErrIO means a credential source could not be read.
	ErrIO = errors.New("credential source unreadable")
)

// Classify maps err to ErrConfig, ErrResourceBusy or ErrIO. It returns
// nil for nil and for errors outside the taxonomy.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrIO), errors.Is(err, auth.ErrIO):
		return ErrIO
	case errors.Is(err, ErrResourceBusy),
		errors.Is(err, grab.ErrKeyboardBusy),
		errors.Is(err, grab.ErrPointerBusy),
		errors.Is(err, instance.ErrAlreadyRunning):
		return ErrResourceBusy
	case errors.Is(err, ErrConfig),
		errors.Is(err, auth.ErrConfig),
		errors.Is(err, background.ErrConfig),
		errors.Is(err, cursor.ErrConfig),
		errors.Is(err, feedback.ErrConfig),
		errors.Is(err, module.ErrNotFound),
		errors.Is(err, input.ErrInvalidConfig):
		return ErrConfig
	default:
		return nil
	}
}

// ExitCode returns the process exit status for the result of a run:
// 0 for success and listings, 1 for everything else.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, auth.ErrListed) {
		return 0
	}
	return 1
}

// ModuleError reports a module that failed to initialize. Spec is
// redacted before it is stored.
type ModuleError struct {
	Kind   string
	Module string
	Spec   string
	Err    error
}

func newModuleError(kind, name, spec string, err error) *ModuleError {
	return &ModuleError{Kind: kind, Module: name, Spec: security.RedactModuleArgs(spec), Err: err}
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("failed init of [%s] with [%s]: %v", e.Module, e.Spec, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

func moduleName(spec string) string {
	name, _, _ := strings.Cut(spec, ":")
	return name
}
