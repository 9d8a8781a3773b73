package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type classifiedError struct {
	retryable bool
	after     time.Duration
}

func (e *classifiedError) Error() string             { return "classified" }
func (e *classifiedError) IsRetryable() bool         { return e.retryable }
func (e *classifiedError) RetryAfter() time.Duration { return e.after }

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("connection reset"), want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "retryable", err: &classifiedError{retryable: true}, want: true},
		{name: "wrapped retryable", err: fmt.Errorf("send: %w", &classifiedError{retryable: true}), want: true},
		{name: "permanent", err: &classifiedError{retryable: false}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		retried = append(retried, attempt)
	}

	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return &classifiedError{retryable: true}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", retried)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	permanent := &classifiedError{retryable: false}
	err := Do(context.Background(), fastConfig(5), func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want the permanent error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	transient := &classifiedError{retryable: true}
	err := Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("err = %v, want wrapped transient error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_DefaultIsSingleAttempt(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Config{}, func(context.Context) error {
		calls++
		return &classifiedError{retryable: true}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_CustomClassifier(t *testing.T) {
	calls := 0
	cfg := fastConfig(2)
	cfg.Retryable = func(error) bool { return true }
	_ = Do(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New("anything")
	})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transient := &classifiedError{retryable: true}
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	calls := 0
	start := time.Now()
	err := Do(ctx, cfg, func(context.Context) error {
		calls++
		return transient
	})
	if err != transient {
		t.Fatalf("err = %v, want the last attempt error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if time.Since(start) > time.Second {
		t.Error("Do waited for the full backoff")
	}
}

func TestBackoff(t *testing.T) {
	initial := 100 * time.Millisecond
	max := time.Second
	plain := errors.New("x")

	tests := []struct {
		attempt int
		err     error
		want    time.Duration
	}{
		{attempt: 1, err: plain, want: 100 * time.Millisecond},
		{attempt: 2, err: plain, want: 200 * time.Millisecond},
		{attempt: 3, err: plain, want: 400 * time.Millisecond},
		{attempt: 5, err: plain, want: time.Second},
		{attempt: 40, err: plain, want: time.Second},
		{attempt: 1, err: &classifiedError{after: 3 * time.Second}, want: 3 * time.Second},
		{attempt: 3, err: &classifiedError{after: 10 * time.Millisecond}, want: 400 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := backoff(tt.attempt, tt.err, initial, max); got != tt.want {
			t.Errorf("backoff(%d, %v) = %v, want %v", tt.attempt, tt.err, got, tt.want)
		}
	}
}
