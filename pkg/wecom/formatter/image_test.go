package formatter

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/flownode/pkg/utils/crypto"
	wecomerrors "github.com/kart-io/flownode/pkg/wecom/errors"
	"github.com/kart-io/flownode/pkg/wecom/message"
)

// A 1x1 transparent PNG.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func encodeImage(magic []byte) string {
	data := append([]byte{}, magic...)
	data = append(data, make([]byte, 16)...)
	return base64.StdEncoding.EncodeToString(data)
}

func TestImageFormatter_Format(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())

	msg, err := f.Format(&Input{ImageBase64: tinyPNG})
	require.NoError(t, err)
	require.NotNil(t, msg.Image)

	assert.Equal(t, string(message.KindImage), msg.MsgType)
	assert.Equal(t, tinyPNG, msg.Image.Base64)

	decoded, err := base64.StdEncoding.DecodeString(tinyPNG)
	require.NoError(t, err)
	assert.Equal(t, crypto.MD5Hex(decoded), msg.Image.MD5)
	assert.Regexp(t, "^[0-9a-f]{32}$", msg.Image.MD5)
}

func TestImageFormatter_ChecksumDeterministic(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())
	first, err := f.Format(&Input{ImageBase64: tinyPNG})
	require.NoError(t, err)
	second, err := f.Format(&Input{ImageBase64: tinyPNG})
	require.NoError(t, err)
	assert.Equal(t, first.Image.MD5, second.Image.MD5)
}

func TestImageFormatter_DataURIPrefixStripped(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())
	msg, err := f.Format(&Input{ImageBase64: "data:image/png;base64," + tinyPNG})
	require.NoError(t, err)
	assert.Equal(t, tinyPNG, msg.Image.Base64)
}

func TestImageFormatter_WhitespaceStripped(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())
	wrapped := tinyPNG[:40] + "\n" + tinyPNG[40:60] + " " + tinyPNG[60:]
	msg, err := f.Format(&Input{ImageBase64: wrapped})
	require.NoError(t, err)
	assert.Equal(t, tinyPNG, msg.Image.Base64)
}

func TestImageFormatter_JPEGAccepted(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())
	_, err := f.Format(&Input{ImageBase64: encodeImage([]byte{0xFF, 0xD8, 0xFF, 0xE0})})
	assert.NoError(t, err)
}

func TestImageFormatter_GIFRejected(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())
	_, err := f.Format(&Input{ImageBase64: encodeImage([]byte("GIF89a"))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format: gif")
}

func TestImageFormatter_UnknownFormatRejected(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())
	_, err := f.Format(&Input{ImageBase64: encodeImage([]byte{0x00, 0x01, 0x02, 0x03})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format: unknown")
}

func TestImageFormatter_InvalidBase64(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())
	for _, payload := range []string{"!!!not-base64!!!", "abc=d===", "ab"} {
		_, err := f.Format(&Input{ImageBase64: payload})
		require.Error(t, err, "payload %q", payload)
		assert.Contains(t, err.Error(), "40035", "payload %q", payload)
	}
}

func TestImageFormatter_EmptyPayload(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())
	_, err := f.Format(&Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "44001")
}

func TestImageFormatter_URLSourceNotImplemented(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())
	_, err := f.Format(&Input{ImageURL: "https://example.com/pic.png"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, wecomerrors.ErrNotImplemented))
}

func TestImageFormatter_SizeLimit(t *testing.T) {
	f := NewImageFormatter(ImageConfig{MaxBytes: 64, AllowedFormats: []string{"png"}})
	oversize := encodeImage(append([]byte{0x89, 0x50, 0x4E, 0x47}, make([]byte, 100)...))

	_, err := f.Format(&Input{ImageBase64: oversize})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "40009")
	// The message names both the actual size and the limit.
	assert.Contains(t, err.Error(), "64")
}

func TestSniffImageFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}, "png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, "jpg"},
		{"gif", []byte("GIF89a"), "gif"},
		{"unknown", []byte{0x01, 0x02, 0x03, 0x04}, "unknown"},
		{"too short", []byte{0x89}, "unknown"},
		{"empty", nil, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SniffImageFormat(tt.data))
		})
	}
}

func TestImageFormatter_Validate(t *testing.T) {
	f := NewImageFormatter(DefaultImageConfig())

	decoded, err := base64.StdEncoding.DecodeString(tinyPNG)
	require.NoError(t, err)
	good := f.Validate(&message.Message{
		MsgType: string(message.KindImage),
		Image:   &message.ImageContent{Base64: tinyPNG, MD5: crypto.MD5Hex(decoded)},
	})
	assert.True(t, good.Valid)

	bad := f.Validate(&message.Message{
		MsgType: string(message.KindImage),
		Image:   &message.ImageContent{Base64: "", MD5: "NOT-A-DIGEST"},
	})
	require.False(t, bad.Valid)
	assert.Len(t, bad.Errors, 2)
	assert.Contains(t, strings.Join(bad.Errors, "; "), "checksum")
}
