package formatter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/flownode/pkg/wecom/message"
)

func TestTextFormatter_Format(t *testing.T) {
	f := NewTextFormatter()

	msg, err := f.Format(&Input{
		Content:         "hello group",
		MentionedUsers:  []string{"alice", "bob", "alice", "  ", "bob"},
		MentionedPhones: []string{"13812345678", "12345", "13812345678", "19900001111"},
	})
	require.NoError(t, err)
	require.NotNil(t, msg.Text)

	assert.Equal(t, string(message.KindText), msg.MsgType)
	assert.Equal(t, "hello group", msg.Text.Content)
	assert.Equal(t, []string{"alice", "bob"}, msg.Text.MentionedList)
	assert.Equal(t, []string{"13812345678", "19900001111"}, msg.Text.MentionedMobileList)
}

func TestTextFormatter_EmptyContent(t *testing.T) {
	f := NewTextFormatter()
	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := f.Format(&Input{Content: content})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "44004")
	}
}

func TestTextFormatter_Truncation(t *testing.T) {
	f := NewTextFormatter()
	long := strings.Repeat("x", MaxContentLength+500)

	msg, err := f.Format(&Input{Content: long})
	require.NoError(t, err)

	content := msg.Text.Content
	assert.Equal(t, MaxContentLength, utf8.RuneCountInString(content))
	assert.True(t, strings.HasSuffix(content, TruncationSuffix))
}

func TestTextFormatter_TruncationMultibyte(t *testing.T) {
	f := NewTextFormatter()
	long := strings.Repeat("企", MaxContentLength+10)

	msg, err := f.Format(&Input{Content: long})
	require.NoError(t, err)
	assert.Equal(t, MaxContentLength, utf8.RuneCountInString(msg.Text.Content))
}

func TestTextFormatter_ShortContentUntouched(t *testing.T) {
	f := NewTextFormatter()
	msg, err := f.Format(&Input{Content: "short"})
	require.NoError(t, err)
	assert.Equal(t, "short", msg.Text.Content)
}

func TestTextFormatter_EmptyMentionListsOmitted(t *testing.T) {
	f := NewTextFormatter()
	msg, err := f.Format(&Input{
		Content:         "no mentions",
		MentionedPhones: []string{"not-a-phone"},
	})
	require.NoError(t, err)
	assert.Nil(t, msg.Text.MentionedList)
	assert.Nil(t, msg.Text.MentionedMobileList)
}

func TestTextFormatter_ValidateAggregatesViolations(t *testing.T) {
	f := NewTextFormatter()
	msg := &message.Message{
		MsgType: string(message.KindText),
		Text: &message.TextContent{
			Content:             strings.Repeat("y", MaxContentLength+1),
			MentionedList:       []string{"alice", "alice", " "},
			MentionedMobileList: []string{"999"},
		},
	}

	result := f.Validate(msg)
	require.False(t, result.Valid)
	// Length, duplicate user, blank user, and invalid phone all reported.
	assert.Len(t, result.Errors, 4)
	assert.Contains(t, result.ErrorText(), "exceeds")
	assert.Contains(t, result.ErrorText(), "duplicate")
}

func TestTextFormatter_ValidateMissingPayload(t *testing.T) {
	f := NewTextFormatter()
	result := f.Validate(&message.Message{MsgType: string(message.KindText)})
	require.False(t, result.Valid)
	assert.Contains(t, result.ErrorText(), "missing")
}
