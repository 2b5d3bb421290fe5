package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"grablock/internal/module"
	"grablock/internal/security"
)

// BcryptVerifier checks the candidate against a bcrypt hash given with
// "hash=<$2...>" or read from the first line of "file=<path>".
type BcryptVerifier struct {
	hashed []byte
}

// NewBcryptVerifier returns an uninitialized bcrypt verifier.
func NewBcryptVerifier() *BcryptVerifier { return &BcryptVerifier{} }

// Name implements Verifier.
func (v *BcryptVerifier) Name() string { return "bcrypt" }

// Init implements Verifier.
func (v *BcryptVerifier) Init(args string) error {
	v.Release()

	opts := module.ParseOptions(args)
	if module.HasList(opts) {
		return &ListedError{Module: "bcrypt", Items: []string{"hash=<bcrypt hash>", "file=<path>"}}
	}

	var hashed []byte
	for _, opt := range opts {
		switch opt.Key {
		case "hash":
			security.Wipe(hashed)
			hashed = []byte(opt.Value)
		case "file":
			line, err := security.ReadFirstLine(opt.Value)
			if err != nil {
				security.Wipe(hashed)
				return fmt.Errorf("%w: bcrypt file %s: %v", ErrIO, opt.Value, err)
			}
			security.Wipe(hashed)
			hashed = line
		default:
			security.Wipe(hashed)
			return configErrorf("unknown option %q", opt.Key)
		}
	}

	if len(hashed) == 0 {
		return configErrorf("missing hash or file")
	}
	if _, err := bcrypt.Cost(hashed); err != nil {
		security.Wipe(hashed)
		return configErrorf("not a bcrypt hash: %v", err)
	}

	v.hashed = hashed
	return nil
}

// Verify implements Verifier.
func (v *BcryptVerifier) Verify(candidate []byte) bool {
	if v.hashed == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hashed, candidate) == nil
}

// Release implements Verifier.
func (v *BcryptVerifier) Release() {
	security.Wipe(v.hashed)
	v.hashed = nil
}
