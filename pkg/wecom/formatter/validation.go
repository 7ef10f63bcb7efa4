package formatter

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationResult aggregates the violations found in one validation pass.
// It is produced fresh per call and never mutated after return.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

func (v *ValidationResult) addError(format string, args ...any) {
	v.Valid = false
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// ErrorText joins all violations into one message.
func (v *ValidationResult) ErrorText() string {
	return strings.Join(v.Errors, "; ")
}

// isHTTPURL reports whether raw parses as an absolute http or https URL.
func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
