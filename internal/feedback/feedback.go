// Package feedback shows the password-entry state on the lock surfaces
// without echoing what is typed.
package feedback

import (
	"errors"

	"grablock/internal/display"
	"grablock/internal/input"
	"grablock/internal/module"
)

// ErrConfig reports bad feedback options.
var ErrConfig = errors.New("feedback: invalid configuration")

// Feedback draws state indicators. It is initialized after the
// background so the surfaces exist.
type Feedback interface {
	input.Feedback
	input.ExposeHandler
	Name() string
	Init(args string, d *display.Session) error
	Teardown()
}

// Registry lists the feedback modules; frame is the default.
func Registry() *module.Registry[Feedback] {
	return module.NewRegistry[Feedback]("input").
		Register("frame", func() Feedback { return &Frame{} }).
		Register("none", func() Feedback { return None{} })
}

// None draws nothing.
type None struct{}

func (None) Name() string { return "none" }
func (None) Init(string, *display.Session) error { return nil }
func (None) OnStateChanged(input.State) {}
func (None) OnCharEntered() {}
func (None) OnExpose(input.Expose) {}
func (None) Teardown() {}
