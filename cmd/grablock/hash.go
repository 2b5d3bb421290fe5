package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/term"

	"grablock/internal/auth"
	"grablock/internal/input"
	"grablock/internal/module"
	"grablock/internal/security"
)

var (
	errPasswordMismatch = errors.New("passwords do not match")
	errPasswordEmpty    = errors.New("password is empty")
)

func runHash(_ context.Context, e *env, args []string) error {
	var (
		algorithm string
		output    string
	)
	fs := newFlagSet(e, "hash", "hash [--type sha256] [--output path]")
	fs.StringVarP(&algorithm, "type", "t", "sha256", "digest algorithm ('list' to enumerate)")
	fs.StringVarP(&output, "output", "o", "", "write the digest to this file (mode 0600) instead of stdout")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	if module.IsList(algorithm) {
		return &auth.ListedError{Module: "hash", Items: auth.AlgorithmNames()}
	}
	if _, ok := auth.LookupAlgorithm(algorithm); !ok {
		return fmt.Errorf("%w: unknown hash type %q", auth.ErrConfig, algorithm)
	}

	password, err := readPassword(e)
	if err != nil {
		return err
	}
	defer security.Wipe(password)

	digest, err := hashPassword(algorithm, password)
	if err != nil {
		return err
	}

	line := []byte(digest + "\n")
	if output == "" {
		_, err = e.stdout.Write(line)
		return err
	}
	if err := security.WriteSecretFile(output, line); err != nil {
		return fmt.Errorf("write digest: %w", err)
	}
	fmt.Fprintf(e.stderr, "digest written to %s; use --auth hash:type=%s,file=%s\n", output, algorithm, output)
	return nil
}

// hashPassword digests a password the way the lock screen will see it
// typed: as Latin-1 bytes.
func hashPassword(algorithm string, password []byte) (string, error) {
	encoded, err := input.EncodePassword(string(password))
	if err != nil {
		return "", err
	}
	defer security.Wipe(encoded)
	return auth.HexDigest(algorithm, encoded)
}

// readPassword prompts twice without echo on a terminal, or reads one
// line from a pipe.
func readPassword(e *env) ([]byte, error) {
	fd := int(e.stdin.Fd())
	if !term.IsTerminal(fd) {
		return readPipedPassword(e.stdin)
	}

	fmt.Fprint(e.stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(e.stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	if len(first) == 0 {
		return nil, errPasswordEmpty
	}

	fmt.Fprint(e.stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(e.stderr)
	if err != nil {
		security.Wipe(first)
		return nil, fmt.Errorf("reading password confirmation: %w", err)
	}
	defer security.Wipe(second)

	if !security.ConstantTimeCompare(first, second) {
		security.Wipe(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}

// readPipedPassword reads the first line of r. Only the line terminator
// is removed.
func readPipedPassword(r io.Reader) ([]byte, error) {
	reader := bufio.NewReaderSize(r, security.MaxCredentialLine+1)
	line, err := reader.ReadSlice('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, bufio.ErrBufferFull) {
			return nil, security.ErrLineTooLong
		}
		return nil, fmt.Errorf("reading password: %w", err)
	}

	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	if n == 0 {
		return nil, errPasswordEmpty
	}

	out := make([]byte, n)
	copy(out, line[:n])
	security.Wipe(line)
	return out, nil
}
