//go:build unix

package security

import (
	"errors"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// checkDebugger looks for a non-zero TracerPid in /proc/self/status.
func checkDebugger(state *ProcessSecurityState) {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		if tracer, ok := strings.CutPrefix(line, "TracerPid:"); ok {
			tracer = strings.TrimSpace(tracer)
			state.Debugger = tracer != "0" && tracer != ""
			return
		}
	}
}

// processAlive probes pid with signal 0. EPERM means the process exists
// but belongs to someone else.
func processAlive(pid int) (bool, error) {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.EPERM):
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	default:
		return false, err
	}
}

func disableCoreDumps() error {
	return unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0})
}

// areCoreEnabled checks if core dumps are enabled.
func areCoreEnabled() bool {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_CORE, &rlimit); err != nil {
		return true // Assume enabled if we can't check
	}
	return rlimit.Cur > 0
}
