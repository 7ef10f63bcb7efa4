package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		fallback string
		expected string
	}{
		{
			name:     "known code ignores fallback",
			code:     93000,
			fallback: "raw api text",
			expected: Message(93000, ""),
		},
		{
			name:     "unknown code uses fallback",
			code:     999999,
			fallback: "  some api message  ",
			expected: "some api message",
		},
		{
			name:     "unknown code without fallback",
			code:     999999,
			fallback: "   ",
			expected: "unknown error (code 999999)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.code, tt.fallback); got != tt.expected {
				t.Errorf("Message(%d, %q) = %q, want %q", tt.code, tt.fallback, got, tt.expected)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []int{-1, -2, -3, 42001, 42002, 45009}
	for _, code := range retryable {
		if !IsRetryable(code) {
			t.Errorf("IsRetryable(%d) = false, want true", code)
		}
	}

	notRetryable := []int{0, -4, -5, -6, 40001, 40008, 44004, 93000, 999999}
	for _, code := range notRetryable {
		if IsRetryable(code) {
			t.Errorf("IsRetryable(%d) = true, want false", code)
		}
	}
}

func TestClassificationPurity(t *testing.T) {
	// The same code always classifies identically.
	for i := 0; i < 3; i++ {
		info := GetErrorInfo(45009)
		if info.Category != CategoryRateLimit {
			t.Errorf("GetErrorInfo(45009).Category = %v, want %v", info.Category, CategoryRateLimit)
		}
		if !info.Retryable {
			t.Error("GetErrorInfo(45009).Retryable = false, want true")
		}
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		code     int
		expected Severity
	}{
		{93000, SeverityCritical},
		{40001, SeverityCritical},
		{44004, SeverityHigh},
		{45002, SeverityMedium},
		{999999, SeverityLow},
	}

	for _, tt := range tests {
		if got := SeverityOf(tt.code); got != tt.expected {
			t.Errorf("SeverityOf(%d) = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		code     int
		expected Category
	}{
		{93000, CategoryAuth},
		{40008, CategoryParameter},
		{44004, CategoryContent},
		{40004, CategoryFile},
		{45009, CategoryRateLimit},
		{48002, CategoryPermission},
		{999999, CategoryUnknown},
	}

	for _, tt := range tests {
		if got := CategoryOf(tt.code); got != tt.expected {
			t.Errorf("CategoryOf(%d) = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

func TestBotError_Error(t *testing.T) {
	err := New(44004, "empty content")
	if got, want := err.Error(), "[44004] empty content"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = err.WithDetails("text message body was blank")
	if got, want := err.Error(), "[44004] empty content: text message body was blank"; got != want {
		t.Errorf("Error() with details = %q, want %q", got, want)
	}
}

func TestBotError_IsByCode(t *testing.T) {
	err := Classify(45009, "")
	if !stderrors.Is(err, &BotError{Code: 45009}) {
		t.Error("errors.Is should match BotErrors by code")
	}
	if stderrors.Is(err, &BotError{Code: 45008}) {
		t.Error("errors.Is matched a different code")
	}
}

func TestBotError_Unwrap(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	err := Wrap(cause, CodeNetworkFailure, "network failure")
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
}

func TestNewNotImplemented(t *testing.T) {
	err := NewNotImplemented("image download from URL")
	if err.Code != CodeNotImplemented {
		t.Errorf("Code = %d, want %d", err.Code, CodeNotImplemented)
	}
	if !stderrors.Is(err, ErrNotImplemented) {
		t.Error("errors.Is(err, ErrNotImplemented) = false, want true")
	}
	if IsRetryable(err.Code) {
		t.Error("not-implemented errors must not be retryable")
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{
			name:         "timeout maps to timeout code",
			err:          fmt.Errorf("context deadline exceeded"),
			expectedCode: CodeTimeout,
		},
		{
			name:         "i/o timeout maps to timeout code",
			err:          fmt.Errorf("read tcp 1.2.3.4:443: i/o timeout"),
			expectedCode: CodeTimeout,
		},
		{
			name:         "connection refused maps to network code",
			err:          fmt.Errorf("dial tcp: connection refused"),
			expectedCode: CodeNetworkFailure,
		},
		{
			name:         "unknown transport error defaults to network code",
			err:          fmt.Errorf("something odd happened"),
			expectedCode: CodeNetworkFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			if got.Code != tt.expectedCode {
				t.Errorf("FromError(%v).Code = %d, want %d", tt.err, got.Code, tt.expectedCode)
			}
			if !got.Retryable {
				t.Errorf("transport errors must stay retryable, code %d was not", got.Code)
			}
		})
	}

	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}

	original := New(40008, "bad type")
	if FromError(fmt.Errorf("wrapped: %w", original)) != original {
		t.Error("an existing BotError should pass through FromError")
	}
}
