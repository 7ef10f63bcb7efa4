package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMD5Hex(t *testing.T) {
	// Known digests.
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", MD5Hex(nil))
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", MD5Hex([]byte("hello")))
}

func TestHasher(t *testing.T) {
	md5Hex, err := NewHasher(MD5).HashHex([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, MD5Hex([]byte("hello")), md5Hex)

	shaHex, err := NewHasher(SHA256).HashHex([]byte("hello"))
	require.NoError(t, err)
	assert.Len(t, shaHex, 64)

	_, err = NewHasher("crc32").Hash([]byte("hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported hash algorithm")
}
