package locker

import (
	"errors"

	"grablock/internal/auth"
	"grablock/internal/background"
	"grablock/internal/cursor"
	"grablock/internal/feedback"
	"grablock/internal/module"
)

// Listing answers "list" requests without opening the display. It
// returns an *auth.ListedError when any module string asks for a
// listing: "--bg list" lists background modules, "--auth hash:list"
// lists the hash algorithms. ok is false when nothing was requested.
func Listing(opts Options) (*auth.ListedError, bool) {
	registries := []struct {
		spec  string
		names func() (string, []string)
	}{
		{opts.Auth, func() (string, []string) { r := auth.Registry(); return r.Kind(), r.Names() }},
		{opts.Background, func() (string, []string) { r := background.Registry(); return r.Kind(), r.Names() }},
		{opts.Cursor, func() (string, []string) { r := cursor.Registry(); return r.Kind(), r.Names() }},
		{opts.Input, func() (string, []string) { r := feedback.Registry(); return r.Kind(), r.Names() }},
	}
	for _, r := range registries {
		if module.IsList(r.spec) {
			kind, names := r.names()
			return &auth.ListedError{Module: kind, Items: names}, true
		}
	}

	sel, err := auth.Registry().Lookup(opts.Auth)
	if err != nil || !module.HasList(module.ParseOptions(sel.Args)) {
		return nil, false
	}
	v := sel.New()
	defer v.Release()
	var listed *auth.ListedError
	if errors.As(v.Init(sel.Args), &listed) {
		return listed, true
	}
	return nil, false
}
