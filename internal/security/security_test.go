package security

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Memory Security Tests
// =============================================================================

func TestWipe(t *testing.T) {
	data := []byte("sensitive data that should be wiped")

	Wipe(data)

	for i, b := range data {
		if b != 0 {
			t.Errorf("byte %d was not wiped: got %d, want 0", i, b)
		}
	}
}

func TestWipeEmpty(t *testing.T) {
	// Should not panic on empty slice
	Wipe(nil)
	Wipe([]byte{})
}

func TestConstantTimeCompare(t *testing.T) {
	tests := []struct {
		a, b  []byte
		equal bool
	}{
		{[]byte("hello"), []byte("hello"), true},
		{[]byte("hello"), []byte("world"), false},
		{[]byte("hello"), []byte("hell"), false},
		{[]byte{}, []byte{}, true},
		{nil, nil, true},
		{[]byte("a"), nil, false},
	}

	for _, tt := range tests {
		got := ConstantTimeCompare(tt.a, tt.b)
		if got != tt.equal {
			t.Errorf("ConstantTimeCompare(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.equal)
		}
	}
}

var compareSink bool

// TestConstantTimeCompareTimingIndependentOfMismatchPosition times 64-byte
// comparisons that differ at the first byte and at the last byte. Samples
// are interleaved so drift affects both sides alike.
func TestConstantTimeCompareTimingIndependentOfMismatchPosition(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical timing test")
	}

	ref := bytes.Repeat([]byte{0xa5}, 64)
	early := bytes.Clone(ref)
	early[0] ^= 0xff
	late := bytes.Clone(ref)
	late[63] ^= 0xff

	const rounds = 20000
	run := func(candidate []byte) time.Duration {
		start := time.Now()
		for i := 0; i < rounds; i++ {
			compareSink = ConstantTimeCompare(ref, candidate)
		}
		return time.Since(start)
	}
	median := func(samples []time.Duration) time.Duration {
		sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
		return samples[len(samples)/2]
	}

	const n = 41
	earlySamples := make([]time.Duration, 0, n)
	lateSamples := make([]time.Duration, 0, n)
	run(early)
	for s := 0; s < n; s++ {
		earlySamples = append(earlySamples, run(early))
		lateSamples = append(lateSamples, run(late))
	}

	earlyTime, lateTime := median(earlySamples), median(lateSamples)
	ratio := float64(earlyTime) / float64(lateTime)
	assert.InDelta(t, 1.0, ratio, 0.15, "early=%v late=%v", earlyTime, lateTime)
	assert.False(t, compareSink)
}

// =============================================================================
// Password Buffer Tests
// =============================================================================

func TestNewPasswordBufferRejectsBadCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := NewPasswordBuffer(capacity)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	}
}

func TestPasswordBufferCapacityBound(t *testing.T) {
	buf, err := NewPasswordBuffer(4)
	require.NoError(t, err)
	defer buf.Destroy()

	for _, c := range []byte("abcd") {
		require.True(t, buf.Append(c))
	}
	assert.True(t, buf.Full())

	// One more append is rejected and the existing content is intact.
	assert.False(t, buf.Append('e'))
	assert.Equal(t, 4, buf.Len())
	snap := buf.Snapshot()
	assert.Equal(t, []byte("abcd"), snap)
	Wipe(snap)
}

func TestPasswordBufferBackspace(t *testing.T) {
	buf, err := NewPasswordBuffer(8)
	require.NoError(t, err)
	defer buf.Destroy()

	assert.False(t, buf.Backspace(), "backspace on empty buffer must be a no-op")
	assert.Equal(t, 0, buf.Len())

	buf.Append('x')
	buf.Append('y')
	assert.True(t, buf.Backspace())
	assert.Equal(t, []byte("x"), buf.Snapshot())
	assert.Equal(t, byte(0), buf.data[1], "removed byte must be zeroed")
}

func TestPasswordBufferWipe(t *testing.T) {
	buf, err := NewPasswordBuffer(8)
	require.NoError(t, err)
	defer buf.Destroy()

	for _, c := range []byte("hunter2") {
		buf.Append(c)
	}
	buf.Wipe()

	assert.Equal(t, 0, buf.Len())
	for i, b := range buf.data {
		assert.Zerof(t, b, "byte %d not wiped", i)
	}
}

func TestPasswordBufferSnapshotIsCopy(t *testing.T) {
	buf, err := NewPasswordBuffer(8)
	require.NoError(t, err)
	defer buf.Destroy()

	buf.Append('a')
	snap := buf.Snapshot()
	buf.Wipe()
	assert.Equal(t, []byte("a"), snap)
}

func TestPasswordBufferDestroyIdempotent(t *testing.T) {
	buf, err := NewPasswordBuffer(8)
	require.NoError(t, err)

	buf.Append('a')
	buf.Destroy()
	buf.Destroy()

	assert.False(t, buf.Append('b'), "append after destroy must fail")
	assert.Equal(t, 0, buf.Len())
}

// =============================================================================
// File Tests
// =============================================================================

func TestReadFirstLine(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"newline stripped", "abcd\n", "abcd"},
		{"no newline", "abcd", "abcd"},
		{"only first line", "abcd\nef01\n", "abcd"},
		{"whitespace kept", " ab \n", " ab "},
		{"carriage return kept", "ab\r\n", "ab\r"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_"))
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			got, err := ReadFirstLine(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestReadFirstLineMissing(t *testing.T) {
	_, err := ReadFirstLine(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestReadFirstLineTooLong(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", MaxCredentialLine+10)), 0600))

	_, err := ReadFirstLine(path)
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestWriteSecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "digest")
	require.NoError(t, WriteSecretFile(path, []byte("abcd\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcd\n", string(data))
	assert.NoError(t, VerifyFilePermissions(path))
}

func TestVerifyFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, os.Chmod(path, 0644))

	assert.ErrorIs(t, VerifyFilePermissions(path), ErrInsecurePermissions)
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestPathValidator(t *testing.T) {
	v := DefaultPathValidator()

	tests := []struct {
		path    string
		wantErr bool
	}{
		{"/tmp/test.txt", false},
		{"relative/file", false},
		{"/tmp/test\x00.txt", true},
		{"", true},
		{"/" + strings.Repeat("a", 5000), true},
	}

	for _, tt := range tests {
		got, err := v.ValidatePath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
		if err == nil && !filepath.IsAbs(got) {
			t.Errorf("ValidatePath(%q) = %q, want absolute path", tt.path, got)
		}
	}
}

func TestValidateHex(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"ab", false},
		{"ABCDEF0123456789", false},
		{"", true},
		{"abc", true},
		{"zz", true},
		{"0x12", true},
	}

	for _, tt := range tests {
		err := ValidateHex(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateHex(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestRedactModuleArgs(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hash:type=sha256,hash=deadbeef", "hash:type=sha256,hash=[REDACTED]"},
		{"hash:hash=deadbeef,type=md5", "hash:hash=[REDACTED],type=md5"},
		{"hash:type=sha1,file=/etc/digest", "hash:type=sha1,file=/etc/digest"},
		{"blank:color=black", "blank:color=black"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactModuleArgs(tt.input))
	}
}

// =============================================================================
// Process Tests
// =============================================================================

func TestProcessAliveSelf(t *testing.T) {
	alive, err := ProcessAlive(os.Getpid())
	require.NoError(t, err)
	assert.True(t, alive)
}

func TestProcessAliveInvalid(t *testing.T) {
	_, err := ProcessAlive(0)
	assert.ErrorIs(t, err, ErrInvalidPID)
}

func TestCaptureProcessSecurityState(t *testing.T) {
	state := CaptureProcessSecurityState()
	assert.Equal(t, os.Getpid(), state.PID)
	assert.Equal(t, os.Geteuid() == 0, state.IsRoot)
}
