package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskValue(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"long value keeps edges", "abcd1234efgh5678", "abcd****5678"},
		{"nine characters", "123456789", "1234****6789"},
		{"eight characters fully masked", "12345678", "****"},
		{"short value fully masked", "abc", "****"},
		{"empty value", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskValue(tt.value))
		})
	}
}

func TestMaskSensitiveData(t *testing.T) {
	data := map[string]any{
		"webhook_url": "https://example.invalid/send?key=verysecretvalue",
		"api_token":   "tok_1234567890",
		"count":       3,
		"content":     "hello world",
		"nested": map[string]any{
			"password": "hunter2",
			"plain":    "visible",
		},
		"credentials": map[string]any{"anything": "hidden"},
	}

	masked := MaskSensitiveData(data)

	assert.NotContains(t, masked["webhook_url"], "verysecretvalue")
	assert.NotContains(t, masked["api_token"], "567890")
	assert.Equal(t, 3, masked["count"])
	assert.Equal(t, "hello world", masked["content"])

	nested := masked["nested"].(map[string]any)
	assert.Equal(t, "****", nested["password"])
	assert.Equal(t, "visible", nested["plain"])

	// A sensitive key holding a map is replaced wholesale.
	assert.Equal(t, "****", masked["credentials"])

	// Original map is untouched.
	assert.Equal(t, "hunter2", data["nested"].(map[string]any)["password"])
}

func TestMaskSensitiveData_Nil(t *testing.T) {
	assert.Nil(t, MaskSensitiveData(nil))
}

func TestMaskURL(t *testing.T) {
	masked := MaskURL("https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=abcd1234efgh5678")
	assert.NotContains(t, masked, "abcd1234efgh5678")
	assert.Contains(t, masked, "abcd****5678")
	assert.Contains(t, masked, "https://qyapi.weixin.qq.com/cgi-bin/webhook/send")

	// URLs without a key parameter pass through.
	assert.Equal(t, "https://example.com/path?x=1", MaskURL("https://example.com/path?x=1"))
}
