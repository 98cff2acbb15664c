// Package hashutil verifies streamed byte content against a self-describing
// multihash: the first byte identifies the algorithm, the second is the
// digest length, followed by the digest itself. Only SHA-256 (0x12) is
// supported, matching the package manager's own hash format.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// SHA256Code is the multihash algorithm byte for SHA-256.
const SHA256Code = 0x12

// MismatchError reports a verification failure, carrying both the expected
// and actual digest for diagnostics.
type MismatchError struct {
	Provided string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("hash mismatch: expected %s, got %s", e.Provided, e.Actual)
}

// Verifier incrementally hashes a byte stream and checks it against an
// embedded multihash digest.
type Verifier struct {
	expectedHex string
	digestLen   int
	h           hash.Hash
}

// TryFromHash parses a hex-encoded self-describing multihash string and
// returns a Verifier ready to accept Update calls. Rejects non-hex input,
// malformed multihash framing, or an unsupported algorithm byte.
func TryFromHash(s string) (*Verifier, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("multihash %q is not valid hex: %w", s, err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("multihash %q is too short to contain a header", s)
	}
	code := raw[0]
	length := int(raw[1])
	if code != SHA256Code {
		return nil, fmt.Errorf("unsupported multihash algorithm code 0x%02x", code)
	}
	if len(raw)-2 != length {
		return nil, fmt.Errorf("multihash %q declares length %d but has %d digest bytes", s, length, len(raw)-2)
	}
	if length != sha256.Size {
		return nil, fmt.Errorf("multihash %q declares length %d, sha256 requires %d", s, length, sha256.Size)
	}

	return &Verifier{expectedHex: s, digestLen: length, h: sha256.New()}, nil
}

// Update feeds additional bytes into the running hash. Safe to call
// repeatedly as a stream is consumed.
func (v *Verifier) Update(p []byte) {
	v.h.Write(p)
}

// Verify checks the accumulated hash against the embedded digest. Returns
// *MismatchError on failure.
func (v *Verifier) Verify() error {
	sum := v.h.Sum(nil)
	actual := BuildSHA256(sum)
	if actual != v.expectedHex {
		return &MismatchError{Provided: v.expectedHex, Actual: actual}
	}
	return nil
}

// BuildSHA256Bytes computes the self-describing SHA-256 multihash for the
// given bytes in one shot.
func BuildSHA256Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return BuildSHA256(sum[:])
}

// BuildSHA256 wraps a raw SHA-256 digest in the multihash header and
// hex-encodes the result.
func BuildSHA256(digest []byte) string {
	buf := make([]byte, 0, 2+len(digest))
	buf = append(buf, SHA256Code, byte(len(digest)))
	buf = append(buf, digest...)
	return hex.EncodeToString(buf)
}
