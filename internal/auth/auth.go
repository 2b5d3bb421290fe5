// Package auth defines the credential verifier contract and the verifiers
// grablock ships with.
//
// A Verifier is configured once from a module argument string, answers
// Verify for each submitted password, and wipes its credential material
// on Release. Verifiers never log the candidate or the stored credential.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"grablock/internal/module"
)

var (
	// ErrConfig reports a bad or missing verifier configuration.
	ErrConfig = errors.New("auth: invalid configuration")

	// ErrIO reports an unreadable credential source.
	ErrIO = errors.New("auth: credential source unreadable")

	// ErrListed is matched by a ListedError. It is not a failure: the
	// caller prints the listing and exits successfully.
	ErrListed = errors.New("auth: listing requested")
)

// Verifier checks candidate passwords against a stored credential.
type Verifier interface {
	// Name returns the registry name of the verifier.
	Name() string

	// Init parses args ("key=value,..." without the scheme prefix) and
	// loads the credential. On error the verifier stays uninitialized
	// and Verify returns false for every input.
	Init(args string) error

	// Verify reports whether candidate matches. It never fails: an
	// uninitialized verifier returns false. Verify does not retain or
	// modify candidate.
	Verify(candidate []byte) bool

	// Release wipes credential material. It is idempotent; Verify
	// returns false afterwards.
	Release()
}

// ListedError carries the choices printed for a "list" request.
type ListedError struct {
	Module string
	Items  []string
}

func (e *ListedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Module, strings.Join(e.Items, ", "))
}

// Unwrap lets errors.Is(err, ErrListed) match.
func (e *ListedError) Unwrap() error { return ErrListed }

// Registry returns the verifiers in selection order. The first entry is
// the default, so an unconfigured lock checks the account password.
func Registry() *module.Registry[Verifier] {
	return module.NewRegistry[Verifier]("auth").
		Register("passwd", func() Verifier { return NewPasswdVerifier() }).
		Register("hash", func() Verifier { return NewHashVerifier() }).
		Register("bcrypt", func() Verifier { return NewBcryptVerifier() }).
		Register("none", func() Verifier { return NoneVerifier{} })
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfig}, args...)...)
}
