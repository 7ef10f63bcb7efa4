// Package crypto provides the hashing utilities flownode needs for outbound
// payloads.
package crypto

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// HashAlgorithm selects a hashing algorithm.
type HashAlgorithm string

const (
	// MD5 is required by the WeCom image message checksum field. It is not
	// used for anything security-sensitive.
	MD5 HashAlgorithm = "md5"
	// SHA256 is available for payload fingerprinting.
	SHA256 HashAlgorithm = "sha256"
)

// Hasher computes digests with a fixed algorithm.
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a hasher for the given algorithm.
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// Hash computes the digest of data.
func (h *Hasher) Hash(data []byte) ([]byte, error) {
	hasher, err := h.newHashFunc()
	if err != nil {
		return nil, err
	}
	hasher.Write(data)
	return hasher.Sum(nil), nil
}

// HashHex computes the digest of data and returns it hex-encoded.
func (h *Hasher) HashHex(data []byte) (string, error) {
	sum, err := h.Hash(data)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

func (h *Hasher) newHashFunc() (hash.Hash, error) {
	switch h.algorithm {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", h.algorithm)
	}
}

// MD5Hex returns the hex MD5 digest of data.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
