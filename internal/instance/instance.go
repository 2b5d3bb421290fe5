// Package instance keeps two grablock processes from locking the same
// display. The running locker records its pid in a marker attached to
// the display; a later start refuses to run while that pid is alive.
package instance

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"grablock/internal/security"
)

// ErrAlreadyRunning means the marker names a live process.
var ErrAlreadyRunning = errors.New("instance: another locker is running")

// MarkerStore reads and writes the pid marker.
type MarkerStore interface {
	// ReadMarker returns the recorded pid; ok is false when there is no
	// marker.
	ReadMarker() (pid int, ok bool, err error)
	WriteMarker(pid int) error
	DeleteMarker() error
}

// Guard applies the single-instance rule over a MarkerStore.
type Guard struct {
	store  MarkerStore
	pid    int
	alive  func(pid int) (bool, error)
	logger *slog.Logger
}

// NewGuard creates a guard for the current process.
func NewGuard(store MarkerStore, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		store:  store,
		pid:    os.Getpid(),
		alive:  security.ProcessAlive,
		logger: logger.With("component", "instance"),
	}
}

// DetectExisting returns ErrAlreadyRunning when the marker names a live
// process other than this one. A stale marker is logged and left alone.
func (g *Guard) DetectExisting() error {
	pid, ok, err := g.store.ReadMarker()
	if err != nil {
		return fmt.Errorf("instance: read marker: %w", err)
	}
	if !ok || pid <= 0 || pid == g.pid {
		return nil
	}

	alive, err := g.alive(pid)
	if err != nil {
		return fmt.Errorf("instance: check pid %d: %w", pid, err)
	}
	if alive {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	g.logger.Info("ignoring stale instance marker", "pid", pid)
	return nil
}

// Register records this process as the running locker.
func (g *Guard) Register() error {
	if err := g.store.WriteMarker(g.pid); err != nil {
		return fmt.Errorf("instance: write marker: %w", err)
	}
	return nil
}

// Unregister removes the marker. It is called only after a successful
// unlock.
func (g *Guard) Unregister() error {
	if err := g.store.DeleteMarker(); err != nil {
		return fmt.Errorf("instance: delete marker: %w", err)
	}
	return nil
}
