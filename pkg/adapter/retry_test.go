package adapter

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// flakyAdapter fails with the queued errors before succeeding.
type flakyAdapter struct {
	failures []error
	calls    int
}

func (f *flakyAdapter) Name() string     { return "flaky" }
func (f *flakyAdapter) Models() []string { return []string{"flaky-1"} }

func (f *flakyAdapter) Generate(ctx context.Context, model, prompt string) (*Response, error) {
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	return &Response{Content: "ok", Adapter: f.Name(), Model: model}, nil
}

func TestGenerateWithRetryRecoversFromTransientFailures(t *testing.T) {
	chat := &flakyAdapter{failures: []error{
		&AdapterError{Status: 429, Err: fmt.Errorf("rate limited")},
		&AdapterError{Status: 503, Err: fmt.Errorf("overloaded")},
	}}

	var slept []time.Duration
	resp, err := GenerateWithRetry(context.Background(), chat, "flaky-1", "hello", 3,
		func(d time.Duration) { slept = append(slept, d) })
	if err != nil {
		t.Fatalf("GenerateWithRetry failed: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}
	if chat.calls != 3 {
		t.Errorf("calls = %d, want 3", chat.calls)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; len(slept) != 2 || slept[0] != want[0] || slept[1] != want[1] {
		t.Errorf("slept %v, want %v", slept, want)
	}
}

func TestGenerateWithRetryStopsOnDeterministicError(t *testing.T) {
	chat := &flakyAdapter{failures: []error{
		&AdapterError{Status: 401, Err: fmt.Errorf("bad api key")},
	}}

	var slept []time.Duration
	_, err := GenerateWithRetry(context.Background(), chat, "flaky-1", "hello", 3,
		func(d time.Duration) { slept = append(slept, d) })
	if err == nil {
		t.Fatal("expected error")
	}
	if chat.calls != 1 {
		t.Errorf("calls = %d, want 1", chat.calls)
	}
	if len(slept) != 0 {
		t.Errorf("slept %v, want no backoff", slept)
	}
}

func TestGenerateWithRetryExhaustsAttempts(t *testing.T) {
	chat := &flakyAdapter{failures: []error{
		&AdapterError{Status: 503},
		&AdapterError{Status: 503},
		&AdapterError{Status: 503},
	}}

	_, err := GenerateWithRetry(context.Background(), chat, "flaky-1", "hello", 2,
		func(time.Duration) {})
	if err == nil {
		t.Fatal("expected error")
	}
	if chat.calls != 2 {
		t.Errorf("calls = %d, want 2", chat.calls)
	}
}

func TestGenerateWithRetryZeroAttemptsStillCallsOnce(t *testing.T) {
	chat := &flakyAdapter{}
	resp, err := GenerateWithRetry(context.Background(), chat, "flaky-1", "hello", 0,
		func(time.Duration) {})
	if err != nil {
		t.Fatalf("GenerateWithRetry failed: %v", err)
	}
	if resp.Content != "ok" || chat.calls != 1 {
		t.Errorf("content = %q, calls = %d", resp.Content, chat.calls)
	}
}

func TestGenerateBackoffCapped(t *testing.T) {
	if got := generateBackoff(1); got != time.Second {
		t.Errorf("backoff(1) = %s, want 1s", got)
	}
	if got := generateBackoff(3); got != 4*time.Second {
		t.Errorf("backoff(3) = %s, want 4s", got)
	}
	if got := generateBackoff(10); got != 30*time.Second {
		t.Errorf("backoff(10) = %s, want the 30s cap", got)
	}
}
