package formatter

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/kart-io/flownode/pkg/utils/crypto"
	wecomerrors "github.com/kart-io/flownode/pkg/wecom/errors"
	"github.com/kart-io/flownode/pkg/wecom/message"
)

var (
	dataURIPrefix = regexp.MustCompile(`^data:image/[a-zA-Z0-9.+-]+;base64,`)
	base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
)

// ImageConfig bounds image payloads.
type ImageConfig struct {
	// MaxBytes limits the decoded payload size.
	MaxBytes int
	// AllowedFormats lists the accepted sniffed formats.
	AllowedFormats []string
}

// DefaultImageConfig allows png and jpg up to 2MB, matching the API's
// documented image support. GIF is sniffable but deliberately not allowed.
func DefaultImageConfig() ImageConfig {
	return ImageConfig{
		MaxBytes:       2 * 1024 * 1024,
		AllowedFormats: []string{"png", "jpg"},
	}
}

// ImageFormatter builds image messages from base64 payloads.
type ImageFormatter struct {
	cfg ImageConfig
}

// NewImageFormatter creates an image formatter with the given limits.
func NewImageFormatter(cfg ImageConfig) *ImageFormatter {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultImageConfig().MaxBytes
	}
	if len(cfg.AllowedFormats) == 0 {
		cfg.AllowedFormats = DefaultImageConfig().AllowedFormats
	}
	return &ImageFormatter{cfg: cfg}
}

// Format builds an image message from a base64 payload: strips a data-URI
// prefix and whitespace, verifies the payload round-trips through base64,
// enforces the size limit, sniffs the format against the allow-list, and
// computes the MD5 checksum the wire format requires.
//
// Converting a source URL to base64 is a known gap; it fails with a
// NotImplemented error rather than silently succeeding.
func (f *ImageFormatter) Format(input *Input) (*message.Message, error) {
	if input.ImageBase64 == "" {
		if input.ImageURL != "" {
			return nil, wecomerrors.NewNotImplemented("fetching image content from a source URL")
		}
		return nil, wecomerrors.New(44001, "image payload is empty")
	}

	payload := dataURIPrefix.ReplaceAllString(input.ImageBase64, "")
	payload = stripWhitespace(payload)
	if payload == "" {
		return nil, wecomerrors.New(44001, "image payload is empty")
	}
	if !base64Pattern.MatchString(payload) {
		return nil, wecomerrors.New(40035, "image payload is not valid base64")
	}
	decoded, err := decodeBase64(payload)
	if err != nil {
		return nil, wecomerrors.Wrap(err, 40035, "image payload is not valid base64")
	}
	reencoded := base64.StdEncoding.EncodeToString(decoded)
	if strings.TrimRight(payload, "=") != strings.TrimRight(reencoded, "=") {
		return nil, wecomerrors.New(40035, "image payload is not valid base64")
	}

	// Logical payload size without decoding twice.
	size := len(payload)*3/4 - paddingLen(payload)
	if size > f.cfg.MaxBytes {
		return nil, wecomerrors.Newf(40009, "image size %d bytes exceeds the limit of %d bytes", size, f.cfg.MaxBytes)
	}

	format := SniffImageFormat(decoded)
	if !f.formatAllowed(format) {
		return nil, wecomerrors.Newf(40004, "unsupported image format: %s", format)
	}

	return &message.Message{
		MsgType: string(message.KindImage),
		Image: &message.ImageContent{
			Base64: payload,
			MD5:    crypto.MD5Hex(decoded),
		},
	}, nil
}

func (f *ImageFormatter) formatAllowed(format string) bool {
	for _, allowed := range f.cfg.AllowedFormats {
		if format == allowed {
			return true
		}
	}
	return false
}

// SniffImageFormat detects the image format from the first decoded bytes:
// PNG (89 50 4E 47), JPEG (FF D8 FF), GIF (47 49 46 38). Anything else is
// "unknown".
func SniffImageFormat(data []byte) string {
	if len(data) >= 4 {
		switch {
		case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
			return "png"
		case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
			return "jpg"
		case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38:
			return "gif"
		}
	}
	return "unknown"
}

// Validate reports every violation found in an image message.
func (f *ImageFormatter) Validate(msg *message.Message) *ValidationResult {
	result := newValidationResult()
	if msg == nil || msg.Image == nil {
		result.addError("image payload is missing")
		return result
	}
	payload := msg.Image.Base64
	if payload == "" {
		result.addError("image payload is empty")
	} else if !base64Pattern.MatchString(payload) {
		result.addError("image payload is not valid base64")
	} else {
		size := len(payload)*3/4 - paddingLen(payload)
		if size > f.cfg.MaxBytes {
			result.addError("image size %d bytes exceeds the limit of %d bytes", size, f.cfg.MaxBytes)
		}
	}
	if !md5HexPattern.MatchString(msg.Image.MD5) {
		result.addError("image checksum is not a 32 character hex digest")
	}
	return result
}

var md5HexPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

func paddingLen(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '='; i-- {
		n++
	}
	return n
}

func decodeBase64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
