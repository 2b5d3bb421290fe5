package security

import (
	"errors"
	"os"
)

// ErrInvalidPID is returned by ProcessAlive for pid <= 0.
var ErrInvalidPID = errors.New("security: invalid process id")

// ProcessSecurityState captures the security-relevant state of the
// running locker.
type ProcessSecurityState struct {
	PID      int  `json:"pid"`
	UID      int  `json:"uid"`
	EUID     int  `json:"euid"`
	IsRoot   bool `json:"is_root"`
	Debugger bool `json:"debugger_attached"`

	// CoreDumps is true when the process may still write a core file.
	CoreDumps bool `json:"core_dumps"`

	Warnings []string `json:"warnings,omitempty"`
}

// CaptureProcessSecurityState captures the current process security state.
func CaptureProcessSecurityState() *ProcessSecurityState {
	state := &ProcessSecurityState{
		PID:       os.Getpid(),
		UID:       os.Getuid(),
		EUID:      os.Geteuid(),
		IsRoot:    os.Geteuid() == 0,
		CoreDumps: areCoreEnabled(),
	}

	checkDebugger(state)

	if state.IsRoot {
		state.Warnings = append(state.Warnings, "running as root; the locker only needs access to the display")
	}
	if state.Debugger {
		state.Warnings = append(state.Warnings, "debugger attached; typed passwords may be exposed")
	}
	if state.CoreDumps {
		state.Warnings = append(state.Warnings, "core dumps enabled; a crash could write the password buffer to disk")
	}

	return state
}

// ProcessAlive reports whether pid denotes a running process. A process
// owned by another user counts as alive.
func ProcessAlive(pid int) (bool, error) {
	if pid <= 0 {
		return false, ErrInvalidPID
	}
	return processAlive(pid)
}

// DisableCoreDumps sets RLIMIT_CORE to zero for the current process.
// This prevents secrets from being written to disk on crashes.
func DisableCoreDumps() error {
	return disableCoreDumps()
}
