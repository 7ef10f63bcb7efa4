package errors

import (
	"testing"
	"time"
)

func TestRetryDelay_NoJitter(t *testing.T) {
	cfg := RetryConfig{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1 * time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 8 * time.Second},
		{6, 10 * time.Second},
		{10, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := RetryDelay(tt.attempt, cfg); got != tt.expected {
			t.Errorf("RetryDelay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestRetryDelay_JitterBounds(t *testing.T) {
	cfg := RetryConfig{
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}

	for i := 0; i < 100; i++ {
		got := RetryDelay(2, cfg)
		if got < 1800*time.Millisecond || got > 2200*time.Millisecond {
			t.Fatalf("jittered delay %v outside ±10%% of 2s", got)
		}
	}
}

func TestRetryDelay_DefaultsAppliedToZeroConfig(t *testing.T) {
	got := RetryDelay(1, RetryConfig{})
	if got != DefaultRetryConfig().BaseDelay {
		t.Errorf("RetryDelay(1, zero config) = %v, want %v", got, DefaultRetryConfig().BaseDelay)
	}
}

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		retries int
		base    time.Duration
	}{
		{"critical gets one slow retry", 93000, 1, 5 * time.Second},
		{"high severity", 44004, 2, 2 * time.Second},
		{"medium severity", 45009, 3, 1 * time.Second},
		{"low severity", 999999, 5, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := PolicyFor(tt.code)
			if policy.MaxRetries != tt.retries {
				t.Errorf("PolicyFor(%d).MaxRetries = %d, want %d", tt.code, policy.MaxRetries, tt.retries)
			}
			if policy.BaseDelay != tt.base {
				t.Errorf("PolicyFor(%d).BaseDelay = %v, want %v", tt.code, policy.BaseDelay, tt.base)
			}
		})
	}
}
