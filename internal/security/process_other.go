//go:build !unix

package security

import (
	"errors"
	"os"
)

func checkDebugger(state *ProcessSecurityState) {}

func processAlive(pid int) (bool, error) {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}
	p.Release()
	return true, nil
}

func disableCoreDumps() error {
	return errors.New("security: core dump limits not supported on this platform")
}

func areCoreEnabled() bool { return false }
