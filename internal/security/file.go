package security

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// File permission constants
const (
	// PermSecretFile is the permission for credential files (owner read/write only)
	PermSecretFile os.FileMode = 0600

	// PermSecretDir is the permission for directories holding credential files
	PermSecretDir os.FileMode = 0700
)

// MaxCredentialLine bounds how much of a credential file is read. The
// longest supported hex digest is 128 characters; crypt(3) and bcrypt
// strings are shorter than this limit.
const MaxCredentialLine = 4096

// File operation errors
var (
	ErrInsecurePermissions = errors.New("security: insecure file permissions")
	ErrAtomicWriteFailed   = errors.New("security: atomic write failed")
	ErrTempFileFailed      = errors.New("security: temporary file creation failed")
	ErrLineTooLong         = errors.New("security: credential line exceeds maximum length")
)

// SecureFileWriter handles atomic file writes with secure permissions.
type SecureFileWriter struct {
	path     string
	perm     os.FileMode
	tempFile *os.File
	tempPath string
}

// NewSecureFileWriter creates a writer for secure atomic file writes.
// The file is written to a temporary file first, then renamed atomically.
func NewSecureFileWriter(path string, perm os.FileMode) (*SecureFileWriter, error) {
	cleanPath, err := DefaultPathValidator().ValidatePath(path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, PermSecretDir); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	// Temporary file in the same directory so the rename is atomic
	tempPath := cleanPath + ".tmp." + randomSuffix()
	tempFile, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTempFileFailed, err)
	}

	return &SecureFileWriter{
		path:     cleanPath,
		perm:     perm,
		tempFile: tempFile,
		tempPath: tempPath,
	}, nil
}

// Write writes data to the temporary file.
func (w *SecureFileWriter) Write(p []byte) (n int, err error) {
	return w.tempFile.Write(p)
}

// Commit atomically moves the temporary file to the final path.
func (w *SecureFileWriter) Commit() error {
	if err := w.tempFile.Sync(); err != nil {
		w.Abort()
		return fmt.Errorf("sync: %w", err)
	}

	if err := w.tempFile.Close(); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Rename(w.tempPath, w.path); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("%w: %v", ErrAtomicWriteFailed, err)
	}

	return nil
}

// Abort cancels the write and removes the temporary file.
func (w *SecureFileWriter) Abort() {
	w.tempFile.Close()
	os.Remove(w.tempPath)
}

func randomSuffix() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// WriteSecretFile writes data atomically with owner-only permissions.
func WriteSecretFile(path string, data []byte) error {
	writer, err := NewSecureFileWriter(path, PermSecretFile)
	if err != nil {
		return err
	}

	if _, err := writer.Write(data); err != nil {
		writer.Abort()
		return err
	}

	return writer.Commit()
}

// ReadFirstLine returns the first line of the file at path with a single
// trailing newline removed. Nothing else is trimmed: the line is used
// verbatim. Intermediate read buffers are wiped before returning.
func ReadFirstLine(path string) ([]byte, error) {
	cleanPath, err := DefaultPathValidator().ValidatePath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := bufio.NewReaderSize(io.LimitReader(f, MaxCredentialLine+1), MaxCredentialLine+1)
	line, err := reader.ReadSlice('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, bufio.ErrBufferFull) {
			return nil, ErrLineTooLong
		}
		return nil, err
	}
	if len(line) > MaxCredentialLine {
		Wipe(line)
		return nil, ErrLineTooLong
	}

	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	out := make([]byte, n)
	copy(out, line[:n])
	Wipe(line)
	return out, nil
}

// VerifyFilePermissions reports ErrInsecurePermissions when the file is
// readable or writable by group or others.
func VerifyFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if runtime.GOOS == "windows" {
		return nil
	}

	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("%w: file %s has mode %04o, expected %04o",
			ErrInsecurePermissions, path, mode, PermSecretFile)
	}

	return nil
}
