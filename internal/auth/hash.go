package auth

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"

	"grablock/internal/module"
	"grablock/internal/security"
)

// Algorithm is a digest function usable by the hash verifier.
type Algorithm struct {
	Name string
	Size int
	New  func() hash.Hash
}

var algorithms = []Algorithm{
	{Name: "md5", Size: md5.Size, New: md5.New},
	{Name: "sha1", Size: sha1.Size, New: sha1.New},
	{Name: "sha224", Size: sha256.Size224, New: sha256.New224},
	{Name: "sha256", Size: sha256.Size, New: sha256.New},
	{Name: "sha384", Size: sha512.Size384, New: sha512.New384},
	{Name: "sha512", Size: sha512.Size, New: sha512.New},
	{Name: "sha3-256", Size: 32, New: sha3.New256},
	{Name: "sha3-512", Size: 64, New: sha3.New512},
	{Name: "blake2b-256", Size: blake2b.Size256, New: newBlake2b256},
	{Name: "blake2b-512", Size: blake2b.Size, New: newBlake2b512},
	{Name: "ripemd160", Size: ripemd160.Size, New: ripemd160.New},
}

func newBlake2b256() hash.Hash {
	h, _ := blake2b.New256(nil) // unkeyed never fails
	return h
}

func newBlake2b512() hash.Hash {
	h, _ := blake2b.New512(nil)
	return h
}

// AlgorithmNames returns the names accepted by "type=".
func AlgorithmNames() []string {
	names := make([]string, len(algorithms))
	for i, a := range algorithms {
		names[i] = a.Name
	}
	return names
}

// LookupAlgorithm finds an algorithm by case-insensitive name.
func LookupAlgorithm(name string) (Algorithm, bool) {
	for _, a := range algorithms {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Algorithm{}, false
}

// HexDigest returns the lowercase hex digest of data under the named
// algorithm.
func HexDigest(name string, data []byte) (string, error) {
	alg, ok := LookupAlgorithm(name)
	if !ok {
		return "", configErrorf("unknown hash type %q", name)
	}
	h := alg.New()
	h.Write(data)
	sum := h.Sum(nil)
	defer security.Wipe(sum)
	return hex.EncodeToString(sum), nil
}

// HashVerifier compares the digest of the candidate with a stored digest.
//
// Options:
//
//	type=<algorithm>  digest algorithm (required)
//	hash=<hex>        expected digest
//	file=<path>       file whose first line is the expected digest
//	list              print the supported algorithms
//
// When both hash and file are given the later option wins. Only the
// first 2*size hex characters are used.
type HashVerifier struct {
	alg    Algorithm
	digest []byte
	ready  bool
}

// NewHashVerifier returns an uninitialized hash verifier.
func NewHashVerifier() *HashVerifier { return &HashVerifier{} }

// Name implements Verifier.
func (v *HashVerifier) Name() string { return "hash" }

// Init implements Verifier.
func (v *HashVerifier) Init(args string) error {
	v.Release()

	opts := module.ParseOptions(args)
	if module.HasList(opts) {
		return &ListedError{Module: "hash", Items: AlgorithmNames()}
	}

	var (
		alg        Algorithm
		haveAlg    bool
		hexDigest  []byte
		haveDigest bool
	)
	defer func() { security.Wipe(hexDigest) }()

	for _, opt := range opts {
		switch opt.Key {
		case "type":
			a, ok := LookupAlgorithm(opt.Value)
			if !ok {
				return configErrorf("unknown hash type %q", opt.Value)
			}
			alg, haveAlg = a, true
		case "hash":
			security.Wipe(hexDigest)
			hexDigest = []byte(opt.Value)
			haveDigest = true
		case "file":
			line, err := security.ReadFirstLine(opt.Value)
			if err != nil {
				if errors.Is(err, security.ErrLineTooLong) {
					return configErrorf("hash file %s: %v", opt.Value, err)
				}
				return fmt.Errorf("%w: hash file %s: %v", ErrIO, opt.Value, err)
			}
			security.Wipe(hexDigest)
			hexDigest = line
			haveDigest = true
		default:
			return configErrorf("unknown option %q", opt.Key)
		}
	}

	if !haveAlg {
		return configErrorf("missing type, one of %s", strings.Join(AlgorithmNames(), ", "))
	}
	if !haveDigest {
		return configErrorf("missing hash or file")
	}
	if err := security.ValidateHex(string(hexDigest)); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if len(hexDigest) < 2*alg.Size {
		return configErrorf("%s digest needs %d hex characters, got %d",
			alg.Name, 2*alg.Size, len(hexDigest))
	}

	digest := make([]byte, alg.Size)
	if _, err := hex.Decode(digest, hexDigest[:2*alg.Size]); err != nil {
		security.Wipe(digest)
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	v.alg = alg
	v.digest = digest
	v.ready = true
	return nil
}

// Algorithm returns the configured algorithm name, or "" when
// uninitialized.
func (v *HashVerifier) Algorithm() string {
	if !v.ready {
		return ""
	}
	return v.alg.Name
}

// Verify implements Verifier.
func (v *HashVerifier) Verify(candidate []byte) bool {
	if !v.ready {
		return false
	}
	h := v.alg.New()
	h.Write(candidate)
	sum := h.Sum(nil)
	defer security.Wipe(sum)
	return security.ConstantTimeCompare(sum, v.digest)
}

// Release implements Verifier.
func (v *HashVerifier) Release() {
	security.Wipe(v.digest)
	v.digest = nil
	v.alg = Algorithm{}
	v.ready = false
}
