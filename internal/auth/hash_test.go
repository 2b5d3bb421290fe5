package auth

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Digests of "hunter2".
var hunter2Digests = map[string]string{
	"md5":         "2ab96390c7dbe3439de74d0c9b0b1767",
	"sha1":        "f3bbbd66a63d4bf1747940578ec3d0103530e21d",
	"sha224":      "84ca85078d6fa3a9b01dae0242938a9b71c9c6920f8d790505cad7a7",
	"sha256":      "f52fbd32b2b3b86ff88ef6c490628285f482af15ddcb29541f94bcf526a3f6c7",
	"sha384":      "9b21c457aed7569833b23df041680deba139d5af66fbb64a841316578c4534c98ccd0421e9f10ea4b05bbb11f80b46a4",
	"sha512":      "6b97ed68d14eb3f1aa959ce5d49c7dc612e1eb1dafd73b1e705847483fd6a6c809f2ceb4e8df6ff9984c6298ff0285cace6614bf8daa9f0070101b6c89899e22",
	"sha3-256":    "3ec80fc0faa8db8b7e6e99c74136054965901a8adf7fd6f51b1962a4c0dcab1c",
	"sha3-512":    "c8c5eae050bba0759afd85d94ab00af688e3cd29a3caccef3ed676eb7f5532460f114baa8561a8eeefb152226006a3fffce35f588a43d3ad2fb6e7314cf6fd5a",
	"blake2b-256": "733ec559845c8942ee01dcbba29ef7a44e31bc38a6184bc7f044155f7a3ec0f8",
	"blake2b-512": "2874646084422325e4870ae232783740d99abf25ef8393f4419392a72894e4146b058a8c42ed1104bab750148c14f7b6ee51b83d2ca1c0a55f38b306c099bf17",
	"ripemd160":   "253340764e92439750aaab2d2b92cc325a368681",
}

func TestAlgorithmTableCovered(t *testing.T) {
	names := AlgorithmNames()
	require.Len(t, hunter2Digests, len(names))
	for _, name := range names {
		_, ok := hunter2Digests[name]
		assert.True(t, ok, "no test vector for %s", name)
	}
}

func TestHashVerifierPerAlgorithm(t *testing.T) {
	for name, digest := range hunter2Digests {
		t.Run(name, func(t *testing.T) {
			v := NewHashVerifier()
			require.NoError(t, v.Init("type="+name+",hash="+digest))
			defer v.Release()

			assert.Equal(t, name, v.Algorithm())
			assert.True(t, v.Verify([]byte("hunter2")))
			assert.False(t, v.Verify([]byte("hunter3")))
			assert.False(t, v.Verify([]byte("hunter2\n")), "candidate must not be trimmed")
			assert.False(t, v.Verify(nil))

			got, err := HexDigest(name, []byte("hunter2"))
			require.NoError(t, err)
			assert.Equal(t, digest, got)
		})
	}
}

func TestHashVerifierTypeCaseInsensitive(t *testing.T) {
	v := NewHashVerifier()
	require.NoError(t, v.Init("type=SHA256,hash="+strings.ToUpper(hunter2Digests["sha256"])))
	assert.True(t, v.Verify([]byte("hunter2")))
}

func TestHashVerifierMismatchAtEveryPosition(t *testing.T) {
	v := NewHashVerifier()
	require.NoError(t, v.Init("type=sha256,hash="+hunter2Digests["sha256"]))

	password := []byte("hunter2")
	for i := range password {
		candidate := append([]byte(nil), password...)
		candidate[i] ^= 0x01
		assert.False(t, v.Verify(candidate), "mismatch at byte %d accepted", i)
	}
}

func TestHashVerifierExcessHexIgnored(t *testing.T) {
	v := NewHashVerifier()
	require.NoError(t, v.Init("type=md5,hash="+hunter2Digests["md5"]+"00ff"))
	assert.True(t, v.Verify([]byte("hunter2")))
}

func TestHashVerifierLaterOptionWins(t *testing.T) {
	v := NewHashVerifier()
	require.NoError(t, v.Init("type=md5,hash=00,type=sha256,hash="+hunter2Digests["sha256"]))
	assert.True(t, v.Verify([]byte("hunter2")))
}

func TestHashVerifierFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest")
	require.NoError(t, os.WriteFile(path, []byte(hunter2Digests["sha512"]+"\nignored\n"), 0600))

	v := NewHashVerifier()
	require.NoError(t, v.Init("type=sha512,file="+path))
	assert.True(t, v.Verify([]byte("hunter2")))
}

func TestHashVerifierFileUnreadable(t *testing.T) {
	v := NewHashVerifier()
	err := v.Init("type=sha256,file=" + filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrIO)
	assert.NotErrorIs(t, err, ErrConfig)
	assert.False(t, v.Verify([]byte("hunter2")))
}

func TestHashVerifierConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"unknown type", "type=doesnotexist,hash=ab"},
		{"missing type", "hash=" + hunter2Digests["sha256"]},
		{"missing hash", "type=sha256"},
		{"odd length", "type=md5,hash=" + hunter2Digests["md5"] + "0"},
		{"not hex", "type=md5,hash=" + strings.Repeat("zz", 16)},
		{"too short", "type=sha256,hash=" + hunter2Digests["md5"]},
		{"unknown option", "type=sha256,hash=" + hunter2Digests["sha256"] + ",salt=1"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewHashVerifier()
			err := v.Init(tt.args)
			assert.ErrorIs(t, err, ErrConfig)
			assert.Empty(t, v.Algorithm())
			for _, candidate := range []string{"", "hunter2", "ab", "\x00"} {
				assert.False(t, v.Verify([]byte(candidate)))
			}
		})
	}
}

func TestHashVerifierFailedReinitClearsState(t *testing.T) {
	v := NewHashVerifier()
	require.NoError(t, v.Init("type=sha256,hash="+hunter2Digests["sha256"]))
	require.Error(t, v.Init("type=sha256"))
	assert.False(t, v.Verify([]byte("hunter2")))
}

func TestHashVerifierList(t *testing.T) {
	v := NewHashVerifier()
	err := v.Init("list")
	require.ErrorIs(t, err, ErrListed)

	var listed *ListedError
	require.ErrorAs(t, err, &listed)
	assert.Equal(t, AlgorithmNames(), listed.Items)
	assert.Contains(t, listed.Error(), "sha256")
}

func TestHashVerifierReleaseIdempotent(t *testing.T) {
	v := NewHashVerifier()
	require.NoError(t, v.Init("type=sha256,hash="+hunter2Digests["sha256"]))
	digest := v.digest

	v.Release()
	v.Release()

	assert.False(t, v.Verify([]byte("hunter2")))
	for _, b := range digest {
		assert.Zero(t, b)
	}

	var never HashVerifier
	never.Release()
	assert.False(t, never.Verify([]byte("hunter2")))
}

func TestHexDigestUnknown(t *testing.T) {
	_, err := HexDigest("whirlpool", []byte("x"))
	assert.ErrorIs(t, err, ErrConfig)
}

// TestHashVerifierTimingIndependentOfMismatchPosition compares the median
// Verify time for candidates whose digests differ from the reference at
// the first byte and at the last byte. Digest computation dominates here;
// the comparison itself is timed in the security package.
func TestHashVerifierTimingIndependentOfMismatchPosition(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical timing test")
	}

	v := NewHashVerifier()
	require.NoError(t, v.Init("type=sha256,hash="+hunter2Digests["sha256"]))

	// Verify hashes the candidate, so the comparison sees digests. Build
	// the reference so that the stored digest differs from H(candidate)
	// at a chosen position instead.
	candidate := []byte("hunter2")
	early := append([]byte(nil), v.digest...)
	early[0] ^= 0xff
	late := append([]byte(nil), v.digest...)
	late[len(late)-1] ^= 0xff

	measure := func(ref []byte) time.Duration {
		copy(v.digest, ref)
		const rounds = 2000
		samples := make([]time.Duration, 0, 31)
		for s := 0; s < cap(samples); s++ {
			start := time.Now()
			for i := 0; i < rounds; i++ {
				v.Verify(candidate)
			}
			samples = append(samples, time.Since(start))
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
		return samples[len(samples)/2]
	}

	earlyTime := measure(early)
	lateTime := measure(late)

	ratio := float64(earlyTime) / float64(lateTime)
	assert.InDelta(t, 1.0, ratio, 0.5, "early=%v late=%v", earlyTime, lateTime)
}
