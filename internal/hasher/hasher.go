// Package hasher computes content fingerprints for change detection and
// content addressing. New hashes with BLAKE3 and NewWithFallback with
// SHA-256; the algorithm is fixed by the constructor, not detected at run
// time.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"lukechampine.com/blake3"

	"github.com/mvp-joe/contextd/internal/ctxerr"
)

// bufferSize matches the streaming chunk size used throughout the indexing
// pipeline for large-file I/O.
const bufferSize = 4 * 1024 * 1024

// Algorithm identifies which hash function produced a fingerprint. It is
// opaque to catalog consumers — hashes are always compared as hex strings.
type Algorithm string

const (
	AlgoBLAKE3  Algorithm = "blake3"
	AlgoSHA256  Algorithm = "sha256"
)

// Hasher streams a file and computes its content fingerprint.
type Hasher struct {
	algo Algorithm
}

// New returns a Hasher using BLAKE3. Go has no platform where blake3.New is
// unavailable, so this never falls back in practice; NewWithFallback exists
// for callers that want the fallback path exercised explicitly (tests, or a
// future build tag that strips the blake3 dependency).
func New() *Hasher {
	return &Hasher{algo: AlgoBLAKE3}
}

// NewWithFallback forces the SHA-256 path. The index and serve commands
// build their hashers with it, so the content hashes they store are SHA-256.
func NewWithFallback() *Hasher {
	return &Hasher{algo: AlgoSHA256}
}

// Algorithm reports which hash function this Hasher uses.
func (h *Hasher) Algorithm() Algorithm {
	return h.algo
}

func (h *Hasher) newDigest() hash.Hash {
	if h.algo == AlgoSHA256 {
		return sha256.New()
	}
	return blake3.New(32, nil)
}

// Hash streams path in fixed-size buffers and returns the raw digest bytes.
func (h *Hasher) Hash(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ctxerr.Wrap(ctxerr.ErrIO, "open file for hashing", err)
	}
	defer f.Close()

	digest := h.newDigest()
	buf := make([]byte, bufferSize)
	if _, err := io.CopyBuffer(digest, f, buf); err != nil {
		return nil, ctxerr.Wrap(ctxerr.ErrIO, "read file for hashing", err)
	}
	return digest.Sum(nil), nil
}

// HashHex is a convenience wrapper combining Hash and Hex.
func (h *Hasher) HashHex(path string) (string, error) {
	sum, err := h.Hash(path)
	if err != nil {
		return "", err
	}
	return Hex(sum), nil
}

// Hex renders a digest as a lowercase hex string, the canonical form stored
// in FileState.content_hash.
func Hex(sum []byte) string {
	return hex.EncodeToString(sum)
}
