package locker

import (
	"grablock/internal/background"
	"grablock/internal/cursor"
	"grablock/internal/display"
	"grablock/internal/feedback"
	"grablock/internal/input"
	"grablock/internal/module"
)

// ModulePresenter runs the background, cursor and feedback modules
// selected by Options against an X display.
type ModulePresenter struct {
	display *display.Session
	opts    Options

	bg       background.Background
	cursor   cursor.Cursor
	feedback feedback.Feedback
}

// NewModulePresenter selects nothing yet; modules are resolved in Setup.
func NewModulePresenter(d *display.Session, opts Options) *ModulePresenter {
	return &ModulePresenter{display: d, opts: opts}
}

// Setup initializes background, cursor and feedback, in that order. On
// error the modules already initialized are torn down.
func (p *ModulePresenter) Setup() error {
	bg, err := setupModule(background.Registry(), p.opts.Background,
		func(m background.Background, args string) error { return m.Init(args, p.display) })
	if err != nil {
		return err
	}
	p.bg = bg

	cur, err := setupModule(cursor.Registry(), p.opts.Cursor,
		func(m cursor.Cursor, args string) error { return m.Init(args, p.display) })
	if err != nil {
		p.Teardown()
		return err
	}
	p.cursor = cur

	fb, err := setupModule(feedback.Registry(), p.opts.Input,
		func(m feedback.Feedback, args string) error { return m.Init(args, p.display) })
	if err != nil {
		p.Teardown()
		return err
	}
	p.feedback = fb
	return nil
}

func setupModule[T any](r *module.Registry[T], spec string, init func(T, string) error) (T, error) {
	var zero T
	sel, err := r.Lookup(spec)
	if err != nil {
		return zero, newModuleError(r.Kind(), moduleName(spec), spec, err)
	}
	m := sel.New()
	if err := init(m, sel.Args); err != nil {
		return zero, newModuleError(r.Kind(), sel.Name, sel.Raw, err)
	}
	return m, nil
}

// OnStateChanged implements input.Feedback.
func (p *ModulePresenter) OnStateChanged(s input.State) {
	if p.feedback != nil {
		p.feedback.OnStateChanged(s)
	}
}

// OnCharEntered implements input.Feedback.
func (p *ModulePresenter) OnCharEntered() {
	if p.feedback != nil {
		p.feedback.OnCharEntered()
	}
}

// OnExpose repaints the background, then the feedback on top of it.
func (p *ModulePresenter) OnExpose(ev input.Expose) {
	if p.bg != nil {
		p.bg.OnExpose(ev)
	}
	if p.feedback != nil {
		p.feedback.OnExpose(ev)
	}
}

// Teardown releases feedback, cursor and background, in that order.
func (p *ModulePresenter) Teardown() {
	if p.feedback != nil {
		p.feedback.Teardown()
		p.feedback = nil
	}
	if p.cursor != nil {
		p.cursor.Teardown()
		p.cursor = nil
	}
	if p.bg != nil {
		p.bg.Teardown()
		p.bg = nil
	}
}
