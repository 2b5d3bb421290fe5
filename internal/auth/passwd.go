package auth

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/user"

	"github.com/GehirnInc/crypt"
	_ "github.com/GehirnInc/crypt/md5_crypt"
	_ "github.com/GehirnInc/crypt/sha256_crypt"
	_ "github.com/GehirnInc/crypt/sha512_crypt"

	"grablock/internal/module"
	"grablock/internal/security"
)

// Default account database locations.
const (
	DefaultShadowPath = "/etc/shadow"
	DefaultPasswdPath = "/etc/passwd"
)

// PasswdVerifier checks the candidate against the crypt(3) hash of a
// local account, read from the shadow file or, when that is unreadable,
// from the passwd file.
//
// Options:
//
//	user=<name>     account to check (default: the invoking user)
//	shadow=<path>   shadow database (default /etc/shadow)
//	passwd=<path>   passwd database (default /etc/passwd)
type PasswdVerifier struct {
	hashed []byte
}

// NewPasswdVerifier returns an uninitialized account verifier.
func NewPasswdVerifier() *PasswdVerifier { return &PasswdVerifier{} }

// Name implements Verifier.
func (v *PasswdVerifier) Name() string { return "passwd" }

// Init implements Verifier.
func (v *PasswdVerifier) Init(args string) error {
	v.Release()

	opts := module.ParseOptions(args)
	if module.HasList(opts) {
		return &ListedError{Module: "passwd", Items: []string{"user=<name>", "shadow=<path>", "passwd=<path>"}}
	}

	shadowPath, passwdPath, name := DefaultShadowPath, DefaultPasswdPath, ""
	for _, opt := range opts {
		switch opt.Key {
		case "user":
			name = opt.Value
		case "shadow":
			shadowPath = opt.Value
		case "passwd":
			passwdPath = opt.Value
		default:
			return configErrorf("unknown option %q", opt.Key)
		}
	}

	if name == "" {
		u, err := user.Current()
		if err != nil {
			return configErrorf("resolve current user: %v", err)
		}
		name = u.Username
	}

	hashed, shadowErr := lookupAccountHash(shadowPath, name)
	if shadowErr != nil || !usableHash(hashed) {
		security.Wipe(hashed)
		var passwdErr error
		hashed, passwdErr = lookupAccountHash(passwdPath, name)
		if passwdErr != nil {
			return fmt.Errorf("%w: account %q: %v", ErrIO, name, errors.Join(shadowErr, passwdErr))
		}
		if !usableHash(hashed) {
			security.Wipe(hashed)
			if shadowErr != nil {
				return fmt.Errorf("%w: account %q: %v", ErrIO, name, shadowErr)
			}
			return configErrorf("account %q has no usable password hash", name)
		}
	}

	if !crypt.IsHashSupported(string(hashed)) {
		security.Wipe(hashed)
		return configErrorf("account %q: unsupported hash scheme", name)
	}

	v.hashed = hashed
	return nil
}

// Verify implements Verifier.
func (v *PasswdVerifier) Verify(candidate []byte) bool {
	if v.hashed == nil {
		return false
	}
	hashed := string(v.hashed)
	return crypt.NewFromHash(hashed).Verify(hashed, candidate) == nil
}

// Release implements Verifier.
func (v *PasswdVerifier) Release() {
	security.Wipe(v.hashed)
	v.hashed = nil
}

var errAccountNotFound = errors.New("auth: account not found")

// lookupAccountHash returns the second colon-separated field of the line
// whose first field is name. Both passwd(5) and shadow(5) share this
// layout.
func lookupAccountHash(path, name string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	prefix := []byte(name + ":")
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, prefix) {
			continue
		}
		field, _, _ := bytes.Cut(line[len(prefix):], []byte(":"))
		out := make([]byte, len(field))
		copy(out, field)
		security.Wipe(line)
		return out, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s in %s", errAccountNotFound, name, path)
}

// usableHash rejects placeholders ("x", "*") and locked accounts ("!").
func usableHash(h []byte) bool {
	return len(h) > 0 && h[0] == '$'
}
