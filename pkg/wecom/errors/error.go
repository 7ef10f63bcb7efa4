package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotImplemented marks features the connector knows about but does not
// support yet. Callers can detect it with errors.Is instead of matching
// message text.
var ErrNotImplemented = stderrors.New("not implemented")

// ErrorInfo is the full classified view of a numeric error code.
type ErrorInfo struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	Category   Category `json:"category"`
	Severity   Severity `json:"severity"`
	Retryable  bool     `json:"retryable"`
	Suggestion string   `json:"suggestion"`
}

// Message returns the curated message for a code. Unknown codes fall back to
// the trimmed fallback text, or to a generic description when that is blank.
func Message(code int, fallback string) string {
	if info, ok := codeTable[code]; ok {
		return info.message
	}
	if trimmed := strings.TrimSpace(fallback); trimmed != "" {
		return trimmed
	}
	return fmt.Sprintf("unknown error (code %d)", code)
}

// IsRetryable reports whether a code is on the fixed retry allow-list.
func IsRetryable(code int) bool {
	return retryableCodes[code]
}

// CategoryOf returns the category for a code, CategoryUnknown when unmapped.
func CategoryOf(code int) Category {
	if info, ok := codeTable[code]; ok {
		return info.category
	}
	return CategoryUnknown
}

// SeverityOf returns the severity for a code, SeverityLow when unmapped.
func SeverityOf(code int) Severity {
	if info, ok := codeTable[code]; ok {
		return info.severity
	}
	return SeverityLow
}

// Suggestion returns remediation text for a code.
func Suggestion(code int) string {
	if info, ok := codeTable[code]; ok {
		return info.suggestion
	}
	return "check the request against the WeCom group-bot API documentation"
}

// GetErrorInfo returns the complete classification for a code.
func GetErrorInfo(code int) ErrorInfo {
	return ErrorInfo{
		Code:       code,
		Message:    Message(code, ""),
		Category:   CategoryOf(code),
		Severity:   SeverityOf(code),
		Retryable:  IsRetryable(code),
		Suggestion: Suggestion(code),
	}
}

// BotError is a classified connector error. Classification fields are derived
// from the code at construction time; the struct itself carries no state
// beyond the error it describes.
type BotError struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	Details    string   `json:"details,omitempty"`
	Category   Category `json:"category"`
	Severity   Severity `json:"severity"`
	Retryable  bool     `json:"retryable"`
	Suggestion string   `json:"suggestion,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *BotError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *BotError) Unwrap() error {
	return e.Cause
}

// Is matches other BotErrors by code, so errors.Is(err, &BotError{Code: n})
// works without comparing messages.
func (e *BotError) Is(target error) bool {
	if botErr, ok := target.(*BotError); ok {
		return e.Code == botErr.Code
	}
	return false
}

// WithDetails attaches detail text to the error.
func (e *BotError) WithDetails(details string) *BotError {
	e.Details = details
	return e
}

// WithCause sets the underlying cause error.
func (e *BotError) WithCause(cause error) *BotError {
	e.Cause = cause
	return e
}

// New creates a BotError with the given code and message. Classification
// fields are filled from the code table.
func New(code int, message string) *BotError {
	return &BotError{
		Code:       code,
		Message:    message,
		Category:   CategoryOf(code),
		Severity:   SeverityOf(code),
		Retryable:  IsRetryable(code),
		Suggestion: Suggestion(code),
		Timestamp:  time.Now(),
	}
}

// Newf creates a BotError with a formatted message.
func Newf(code int, format string, args ...any) *BotError {
	return New(code, fmt.Sprintf(format, args...))
}

// Classify builds a BotError for a code using the curated message table, with
// fallback text for unmapped codes.
func Classify(code int, fallback string) *BotError {
	return New(code, Message(code, fallback))
}

// Wrap classifies a cause error under the given code.
func Wrap(cause error, code int, message string) *BotError {
	return New(code, message).WithCause(cause)
}

// NewNotImplemented marks a known feature gap. The returned error matches
// ErrNotImplemented under errors.Is.
func NewNotImplemented(feature string) *BotError {
	return New(CodeNotImplemented, feature+" is not yet supported").WithCause(ErrNotImplemented)
}

// FromError coerces an arbitrary error into a BotError. A BotError passes
// through unchanged; transport errors are recognized by message substrings and
// mapped onto the synthetic codes; anything else becomes a network failure.
func FromError(err error) *BotError {
	if err == nil {
		return nil
	}
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return Wrap(err, CodeTimeout, Message(CodeTimeout, ""))
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "network"):
		return Wrap(err, CodeNetworkFailure, Message(CodeNetworkFailure, ""))
	default:
		return Wrap(err, CodeNetworkFailure, err.Error())
	}
}
