package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Validation errors
var (
	ErrInvalidPath  = errors.New("security: invalid path")
	ErrInvalidInput = errors.New("security: invalid input")
	ErrInputTooLong = errors.New("security: input exceeds maximum length")
	ErrNullByte     = errors.New("security: null byte in input")
)

// PathValidator provides path validation for user-supplied file names.
type PathValidator struct {
	// MaxPathLength is the maximum allowed path length
	MaxPathLength int
}

// DefaultPathValidator returns a PathValidator with sensible defaults.
func DefaultPathValidator() *PathValidator {
	return &PathValidator{
		MaxPathLength: 4096,
	}
}

// ValidatePath checks if a path is safe to use.
// It returns the cleaned, absolute path if valid.
func (v *PathValidator) ValidatePath(path string) (string, error) {
	if path == "" {
		return "", ErrInvalidPath
	}

	if strings.Contains(path, "\x00") {
		return "", ErrNullByte
	}

	if v.MaxPathLength > 0 && len(path) > v.MaxPathLength {
		return "", fmt.Errorf("%w: length %d exceeds maximum %d", ErrInputTooLong, len(path), v.MaxPathLength)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	return absPath, nil
}

// ValidateHex checks that s is non-empty, even-length hexadecimal.
func ValidateHex(s string) error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty hex string", ErrInvalidInput)
	}
	if len(s)%2 != 0 {
		return fmt.Errorf("%w: odd number of hex characters (%d)", ErrInvalidInput, len(s))
	}

	for i, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return fmt.Errorf("%w: invalid hex character at position %d", ErrInvalidInput, i)
		}
	}

	return nil
}

var moduleSecretPattern = regexp.MustCompile(`(?i)\b(hash|password|passwd|secret)=[^,]*`)

// RedactModuleArgs masks secret-looking values in a module argument
// string such as "hash:type=sha256,hash=9f86...". It is applied to every
// argument string before it reaches a diagnostic or a log record.
func RedactModuleArgs(args string) string {
	return moduleSecretPattern.ReplaceAllString(args, "$1=[REDACTED]")
}
