//go:build !unix

package security

import "errors"

func lockMemory(data []byte) error {
	return errors.New("security: mlock not supported on this platform")
}

func unlockMemory(data []byte) {}
