package workflow

import (
	"testing"
	"time"
)

func TestRetryBackoff(t *testing.T) {
	initial := 5 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 5 * time.Second},
		{attempt: 2, want: 10 * time.Second},
		{attempt: 3, want: 20 * time.Second},
		{attempt: 4, want: 40 * time.Second},
		{attempt: 5, want: 80 * time.Second},
		{attempt: 7, want: 320 * time.Second},
		// cap at ten minutes
		{attempt: 8, want: 10 * time.Minute},
		{attempt: 20, want: 10 * time.Minute},
		{attempt: 100, want: 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := RetryBackoff(initial, tt.attempt); got != tt.want {
			t.Errorf("RetryBackoff(attempt=%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryBackoffNeverShrinks(t *testing.T) {
	initial := time.Second
	prev := time.Duration(0)
	for attempt := 1; attempt <= 30; attempt++ {
		got := RetryBackoff(initial, attempt)
		if got < prev {
			t.Fatalf("backoff shrank at attempt %d: %s < %s", attempt, got, prev)
		}
		prev = got
	}
}

func TestNewOutboxDispatcherDefaults(t *testing.T) {
	d := NewOutboxDispatcher(nil, nil)
	if d.BatchSize <= 0 {
		t.Error("batch size must be positive")
	}
	if d.MaxAttempts <= 0 {
		t.Error("max attempts must be positive")
	}
	if d.PollInterval <= 0 {
		t.Error("poll interval must be positive")
	}
	if d.DispatcherID == "" {
		t.Error("dispatcher id must be set")
	}
}
