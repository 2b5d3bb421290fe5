package instance

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	pid     int
	present bool
	readErr error
	writes  int
	deletes int
}

func (m *memoryStore) ReadMarker() (int, bool, error) {
	return m.pid, m.present, m.readErr
}

func (m *memoryStore) WriteMarker(pid int) error {
	m.pid, m.present = pid, true
	m.writes++
	return nil
}

func (m *memoryStore) DeleteMarker() error {
	m.pid, m.present = 0, false
	m.deletes++
	return nil
}

func newTestGuard(store MarkerStore, live map[int]bool) *Guard {
	g := NewGuard(store, nil)
	g.pid = 100
	g.alive = func(pid int) (bool, error) { return live[pid], nil }
	return g
}

func TestDetectExisting(t *testing.T) {
	live := map[int]bool{200: true}

	tests := []struct {
		name    string
		store   *memoryStore
		wantErr error
	}{
		{"no marker", &memoryStore{}, nil},
		{"zero pid", &memoryStore{pid: 0, present: true}, nil},
		{"negative pid", &memoryStore{pid: -5, present: true}, nil},
		{"own pid", &memoryStore{pid: 100, present: true}, nil},
		{"stale", &memoryStore{pid: 300, present: true}, nil},
		{"live", &memoryStore{pid: 200, present: true}, ErrAlreadyRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *tt.store
			err := newTestGuard(tt.store, live).DetectExisting()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, before, *tt.store, "detection must not mutate the marker")
		})
	}
}

func TestDetectExistingReadError(t *testing.T) {
	boom := errors.New("bad property")
	err := newTestGuard(&memoryStore{readErr: boom}, nil).DetectExisting()
	assert.ErrorIs(t, err, boom)
}

func TestRegisterUnregister(t *testing.T) {
	store := &memoryStore{}
	g := newTestGuard(store, nil)

	require.NoError(t, g.Register())
	assert.Equal(t, 100, store.pid)
	assert.True(t, store.present)

	require.NoError(t, g.Unregister())
	assert.False(t, store.present)
	assert.Equal(t, 1, store.deletes)
}

func TestGuardUsesRealLiveness(t *testing.T) {
	// The parent of the test binary is alive and is not us.
	store := &memoryStore{pid: os.Getppid(), present: true}
	err := NewGuard(store, nil).DetectExisting()
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}
