// Package security provides the secret-handling primitives grablock
// relies on while the screen is locked.
//
// This package implements:
// - A bounded password buffer that is memory-locked and wiped on clear
// - Constant-time comparison of digests
// - Reading credential files without leaving copies behind
// - Process liveness checks and core-dump suppression
package security

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"runtime"
)

// DefaultPasswordCapacity is the number of characters a password buffer
// accepts unless configured otherwise.
const DefaultPasswordCapacity = 127

// ErrInvalidCapacity is returned for a non-positive buffer capacity.
var ErrInvalidCapacity = errors.New("security: password buffer capacity must be positive")

// PasswordBuffer is a fixed-capacity byte sequence for a password being
// typed. The backing array is allocated once, locked into RAM when the
// process is allowed to, and zeroed on every Wipe. Its length never
// exceeds its capacity.
//
// PasswordBuffer is not safe for concurrent use; it is owned by the
// input reducer.
type PasswordBuffer struct {
	data   []byte
	length int
	locked bool
}

// NewPasswordBuffer allocates a buffer holding at most capacity bytes.
// Failure to mlock is not fatal: the buffer still works, it is just
// eligible for swap.
func NewPasswordBuffer(capacity int) (*PasswordBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	b := &PasswordBuffer{data: make([]byte, capacity)}
	if err := lockMemory(b.data); err == nil {
		b.locked = true
	}

	runtime.SetFinalizer(b, func(pb *PasswordBuffer) {
		pb.Destroy()
	})

	return b, nil
}

// Cap returns the fixed capacity.
func (b *PasswordBuffer) Cap() int { return len(b.data) }

// Len returns the number of bytes currently held.
func (b *PasswordBuffer) Len() int { return b.length }

// Full reports whether another Append would be rejected.
func (b *PasswordBuffer) Full() bool { return b.length >= len(b.data) }

// Locked reports whether the backing memory is mlocked.
func (b *PasswordBuffer) Locked() bool { return b.locked }

// Append adds c to the end of the buffer. It returns false and leaves
// the contents untouched when the buffer is full or destroyed.
func (b *PasswordBuffer) Append(c byte) bool {
	if b.data == nil || b.Full() {
		return false
	}
	b.data[b.length] = c
	b.length++
	return true
}

// Backspace removes the last byte. It returns false on an empty buffer.
func (b *PasswordBuffer) Backspace() bool {
	if b.length == 0 {
		return false
	}
	b.length--
	b.data[b.length] = 0
	return true
}

// Wipe zeroes the whole backing array and empties the buffer.
func (b *PasswordBuffer) Wipe() {
	Wipe(b.data)
	b.length = 0
}

// Snapshot returns a copy of the current contents. The caller owns the
// copy and must Wipe it when done.
func (b *PasswordBuffer) Snapshot() []byte {
	out := make([]byte, b.length)
	copy(out, b.data[:b.length])
	return out
}

// Destroy wipes the buffer and releases the memory lock. Safe to call
// more than once.
func (b *PasswordBuffer) Destroy() {
	if b.data == nil {
		return
	}
	b.Wipe()
	if b.locked {
		unlockMemory(b.data)
		b.locked = false
	}
	b.data = nil
}

// Wipe overwrites a byte slice with zeros.
func Wipe(data []byte) {
	if len(data) == 0 {
		return
	}
	for i := range data {
		data[i] = 0
	}
	runtime.KeepAlive(data)
}

// ConstantTimeCompare compares two byte slices in constant time with
// respect to their contents. Slices of different length are unequal.
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
