package logger

import (
	"net/url"
	"strings"
)

// Substrings that mark a field as sensitive. Matching is done against the
// lowercase form of the key.
var sensitiveKeySubstrings = []string{
	"webhook",
	"key",
	"token",
	"secret",
	"password",
	"auth",
	"credential",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeySubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// MaskValue masks a sensitive string. Values longer than 8 characters keep
// their first and last four characters; shorter values are fully masked.
func MaskValue(value string) string {
	if len(value) > 8 {
		return value[:4] + "****" + value[len(value)-4:]
	}
	return "****"
}

// MaskSensitiveData returns a copy of data with sensitive fields masked.
// Nested maps are walked recursively; only string values are masked, any other
// value under a sensitive key is replaced wholesale.
func MaskSensitiveData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	masked := make(map[string]any, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case string:
			if isSensitiveKey(key) {
				masked[key] = MaskValue(v)
			} else {
				masked[key] = v
			}
		case map[string]any:
			if isSensitiveKey(key) {
				masked[key] = "****"
			} else {
				masked[key] = MaskSensitiveData(v)
			}
		default:
			if isSensitiveKey(key) {
				masked[key] = "****"
			} else {
				masked[key] = value
			}
		}
	}
	return masked
}

// MaskURL masks the `key` query parameter of a URL, which is where WeCom
// webhook URLs carry their secret. Unparseable input is returned unchanged so
// the caller can still log it.
func MaskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := parsed.Query()
	if secret := query.Get("key"); secret != "" {
		query.Set("key", MaskValue(secret))
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}
