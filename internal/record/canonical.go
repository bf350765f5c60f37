package record

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// Fingerprint is the SHA-256 digest of a record's canonical form. Two
// records have equal fingerprints exactly when their canonical forms are
// byte-identical.
type Fingerprint [sha256.Size]byte

// Hex returns the lowercase hex rendering of the fingerprint.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

func (f Fingerprint) String() string {
	return f.Hex()
}

// Canonical is the deterministic byte encoding of a record together with its
// content fingerprint.
type Canonical struct {
	Bytes       []byte
	Fingerprint Fingerprint
}

// Canonicalize produces the canonical form of a record: JSON with
// lexicographically sorted object keys, no insignificant whitespace. Field
// insertion order never affects the output. The only error path is a value
// that cannot be represented as JSON, which extraction never produces.
func Canonicalize(v any) (*Canonical, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	// encoding/json sorts map keys, which is the whole canonicalization rule.
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return &Canonical{
		Bytes:       data,
		Fingerprint: sha256.Sum256(data),
	}, nil
}

// normalize round-trips v through JSON so that structs, typed maps and typed
// slices all collapse to the same generic shape before the sorted encoding.
// Numbers are kept verbatim via json.Number to avoid float formatting drift.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}

// cidPrefix matches what the storage network assigns for raw blocks: CIDv1,
// raw codec, SHA2-256 multihash.
var cidPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.Raw,
	MhType:   mh.SHA2_256,
	MhLength: -1,
}

// PredictCID computes the CIDv1 the storage network would assign to the
// canonical bytes. Used for logging and for cross-checking the identifier a
// pinning service reports; the pipeline never substitutes it for the real
// one.
func PredictCID(canonical []byte) (string, error) {
	c, err := cidPrefix.Sum(canonical)
	if err != nil {
		return "", fmt.Errorf("predict cid: %w", err)
	}
	return c.String(), nil
}
