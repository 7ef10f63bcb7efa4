package formatter

import (
	"regexp"
	"strings"
	"unicode/utf8"

	wecomerrors "github.com/kart-io/flownode/pkg/wecom/errors"
	"github.com/kart-io/flownode/pkg/wecom/message"
)

// phonePattern matches mainland mobile numbers: 11 digits starting with 1,
// second digit 3-9.
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// TextFormatter builds plain-text messages with optional mentions.
type TextFormatter struct{}

// NewTextFormatter creates a text formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format builds a text message. Content is required and non-blank; mention
// lists are de-duplicated and phone mentions filtered to valid mobile
// numbers. Lists that end up empty are omitted from the wire format.
func (f *TextFormatter) Format(input *Input) (*message.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, wecomerrors.New(44004, "text content is empty")
	}
	content = truncate(content, MaxContentLength, TruncationSuffix)

	users := dedupe(input.MentionedUsers)
	var phones []string
	for _, phone := range dedupe(input.MentionedPhones) {
		if phonePattern.MatchString(phone) {
			phones = append(phones, phone)
		}
	}

	return &message.Message{
		MsgType: string(message.KindText),
		Text: &message.TextContent{
			Content:             content,
			MentionedList:       users,
			MentionedMobileList: phones,
		},
	}, nil
}

// Validate reports every violation found in a text message.
func (f *TextFormatter) Validate(msg *message.Message) *ValidationResult {
	result := newValidationResult()
	if msg == nil || msg.Text == nil {
		result.addError("text payload is missing")
		return result
	}
	if strings.TrimSpace(msg.Text.Content) == "" {
		result.addError("text content is empty")
	}
	if length := utf8.RuneCountInString(msg.Text.Content); length > MaxContentLength {
		result.addError("text content length %d exceeds the %d character limit", length, MaxContentLength)
	}
	seen := make(map[string]bool)
	for _, user := range msg.Text.MentionedList {
		if strings.TrimSpace(user) == "" {
			result.addError("mentioned user list contains a blank entry")
			continue
		}
		if seen[user] {
			result.addError("mentioned user list contains duplicate entry %q", user)
		}
		seen[user] = true
	}
	for _, phone := range msg.Text.MentionedMobileList {
		if !phonePattern.MatchString(phone) {
			result.addError("mentioned phone %q is not a valid mobile number", phone)
		}
	}
	return result
}
