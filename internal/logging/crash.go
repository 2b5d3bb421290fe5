package logging

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
)

// ErrPanic wraps a recovered panic.
var ErrPanic = errors.New("panic")

// RecoverPanic turns a panic in the calling goroutine into an error in
// *errp and logs the panic value with its stack. It must be deferred
// directly:
//
//	func run() (err error) {
//		defer logger.RecoverPanic(&err)
//		...
//	}
//
// Deferred functions registered before it (grab release, display close)
// have already run by the time the stack unwinds this far.
func (l *Logger) RecoverPanic(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	l.Error("panic",
		"value", fmt.Sprint(r),
		"goos", runtime.GOOS,
		"goroutines", runtime.NumGoroutine(),
		"stack", string(debug.Stack()),
	)
	if errp != nil {
		*errp = fmt.Errorf("%w: %v", ErrPanic, r)
	}
}
