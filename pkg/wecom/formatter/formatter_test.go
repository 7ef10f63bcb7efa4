package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/flownode/pkg/wecom/message"
)

func TestForKind(t *testing.T) {
	for _, kind := range message.Kinds() {
		f, err := ForKind(kind)
		require.NoError(t, err, "kind %s", kind)
		require.NotNil(t, f)
	}

	_, err := ForKind(message.Kind("video"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported message type")
}

func TestForKind_CachesInstances(t *testing.T) {
	first, err := ForKind(message.KindText)
	require.NoError(t, err)
	second, err := ForKind(message.KindText)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		max      int
		suffix   string
		expected string
	}{
		{"within limit", "hello", 10, "...", "hello"},
		{"exactly at limit", "hello", 5, "...", "hello"},
		{"over limit", "hello world", 8, "...", "hello..."},
		{"suffix longer than limit", "hello", 2, "...", "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncate(tt.content, tt.max, tt.suffix))
		})
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{" a ", "b", "a", "", "c", "b", "  "})
	assert.Equal(t, []string{"a", "b", "c"}, got)

	assert.Nil(t, dedupe(nil))
	assert.Nil(t, dedupe([]string{"", "  "}))
}
