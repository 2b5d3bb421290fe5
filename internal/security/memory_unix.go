//go:build unix

package security

import "golang.org/x/sys/unix"

// lockMemory pins data into RAM so the password never reaches swap.
func lockMemory(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Mlock(data)
}

func unlockMemory(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Munlock(data)
}
