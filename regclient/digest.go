package regclient

import (
	// registers the sha256/sha512 algorithms with go-digest
	_ "crypto/sha256"
	_ "crypto/sha512"

	digest "github.com/opencontainers/go-digest"
)

// ContentDigest is a parsed "<algorithm>:<hex>" identifier, validated
// against the algorithm's expected hex length. Unlike a bare digest.Digest,
// construction is strict: unrecognized algorithms and malformed hex fail
// immediately rather than lazily on first use.
type ContentDigest struct {
	d digest.Digest
}

// ParseDigest parses and validates a "<algorithm>:<hex>" string.
func ParseDigest(s string) (ContentDigest, error) {
	d := digest.Digest(s)
	if err := d.Validate(); err != nil {
		if err == digest.ErrDigestUnsupported {
			return ContentDigest{}, newErr(KindMalformed, "unknown digest algorithm in %q", s)
		}
		return ContentDigest{}, wrapErr(KindMalformed, err, "invalid digest %q", s)
	}
	return ContentDigest{d: d}, nil
}

// String returns the canonical "<algorithm>:<hex>" form. Round-trips with
// ParseDigest: ParseDigest(d.String()).String() == d.String().
func (c ContentDigest) String() string {
	return c.d.String()
}

// Algorithm returns the digest's hash algorithm identifier, e.g. "sha256".
func (c ContentDigest) Algorithm() string {
	return string(c.d.Algorithm())
}

// Verify recomputes the digest over b and compares it against the stored
// value. It never returns success for a digest it can't recompute.
func (c ContentDigest) Verify(b []byte) error {
	actual := c.d.Algorithm().FromBytes(b)
	if actual != c.d {
		return &Error{
			Kind:    KindDigestMismatch,
			Message: "digest mismatch: expected " + c.d.String() + ", got " + actual.String(),
		}
	}
	return nil
}

// Equal reports whether two digests name the same content by their
// canonical string form (not by comparing raw bytes).
func (c ContentDigest) Equal(o ContentDigest) bool {
	return c.d == o.d
}
