package formatter

import (
	"regexp"
	"strings"

	wecomerrors "github.com/kart-io/flownode/pkg/wecom/errors"
	"github.com/kart-io/flownode/pkg/wecom/message"
)

// mediaIDPattern matches valid upload media ids. Length bounds cover the
// too-short and too-long cases.
var mediaIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,100}$`)

// FileFormatter builds file messages referencing a previously uploaded file.
type FileFormatter struct{}

// NewFileFormatter creates a file formatter.
func NewFileFormatter() *FileFormatter {
	return &FileFormatter{}
}

// Format builds a file message. Empty and malformed media ids fail with
// distinct errors.
func (f *FileFormatter) Format(input *Input) (*message.Message, error) {
	mediaID := strings.TrimSpace(input.MediaID)
	if mediaID == "" {
		return nil, wecomerrors.New(41006, "file media id is empty")
	}
	if !mediaIDPattern.MatchString(mediaID) {
		return nil, wecomerrors.Newf(40007, "invalid media id format: %q", mediaID)
	}
	return &message.Message{
		MsgType: string(message.KindFile),
		File:    &message.FileContent{MediaID: mediaID},
	}, nil
}

// Validate reports every violation found in a file message.
func (f *FileFormatter) Validate(msg *message.Message) *ValidationResult {
	result := newValidationResult()
	if msg == nil || msg.File == nil {
		result.addError("file payload is missing")
		return result
	}
	mediaID := strings.TrimSpace(msg.File.MediaID)
	if mediaID == "" {
		result.addError("file media id is empty")
	} else if !mediaIDPattern.MatchString(mediaID) {
		result.addError("invalid media id format: %q", mediaID)
	}
	return result
}
