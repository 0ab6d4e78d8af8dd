package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type transientAdapter struct {
	failures int
	calls    int
}

func (a *transientAdapter) Generate(_ context.Context, model string, prompt string) (*Response, error) {
	a.calls++
	if a.calls <= a.failures {
		return nil, &AdapterError{Status: 429, Temporary: true, Err: fmt.Errorf("rate limit")}
	}
	return &Response{Content: "ok", Adapter: a.Name(), Model: model, Usage: &Usage{PromptTokens: 10, CompletionTokens: 2}}, nil
}

func (a *transientAdapter) Name() string { return "transient" }

func (a *transientAdapter) Models() []string { return []string{"mock-1"} }

type failingAdapter struct {
	calls int
}

func (a *failingAdapter) Generate(_ context.Context, model string, prompt string) (*Response, error) {
	a.calls++
	return nil, fmt.Errorf("hard failure")
}

func (a *failingAdapter) Name() string { return "primary" }

func (a *failingAdapter) Models() []string { return []string{"mock-1"} }

func fastRetry(n int) RetryPolicy {
	return RetryPolicy{MaxRetries: n, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestTargetRetriesTransientErrors(t *testing.T) {
	impl := &transientAdapter{failures: 2}
	var report CallReport
	target := Bind(impl, "mock-1", WithRetry(fastRetry(2)), WithObserver(func(r CallReport) { report = r }))

	resp, err := target.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if impl.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", impl.calls)
	}
	if report.Retries != 2 {
		t.Fatalf("expected 2 retries, got %d", report.Retries)
	}
	if report.Usage.TotalTokens != 12 {
		t.Fatalf("expected normalized total tokens 12, got %d", report.Usage.TotalTokens)
	}
}

func TestTargetDoesNotRetryHardErrors(t *testing.T) {
	impl := &failingAdapter{}
	target := Bind(impl, "mock-1", WithRetry(fastRetry(3)))

	if _, err := target.Generate(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error")
	}
	if impl.calls != 1 {
		t.Fatalf("expected a single call, got %d", impl.calls)
	}
}

func TestTargetFallback(t *testing.T) {
	secondary := NewMockAdapter().Enqueue("from fallback")
	var report CallReport
	target := Bind(&failingAdapter{}, "mock-1",
		WithRetry(fastRetry(0)),
		WithFallback(Bind(secondary, "mock-1")),
		WithObserver(func(r CallReport) { report = r }),
	)

	resp, err := target.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	if resp.Adapter != "mock" || resp.Content != "from fallback" {
		t.Fatalf("expected fallback response, got %+v", resp)
	}
	if !report.FallbackUsed {
		t.Fatalf("expected fallback_used in report")
	}
}

func TestTargetEmptyResponse(t *testing.T) {
	target := Bind(NewMockAdapter().Enqueue("   "), "mock-1", WithRetry(fastRetry(1)))
	_, err := target.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", &AdapterError{Status: 429}, true},
		{"server error", fmt.Errorf("wrapped: %w", &AdapterError{Status: 503}), true},
		{"bad request", &AdapterError{Status: 400}, false},
		{"request timeout", &AdapterError{Status: 408}, true},
		{"overloaded", &AdapterError{Provider: "anthropic", Status: 529}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryPolicyDo(t *testing.T) {
	transient := &AdapterError{Status: 503, Err: errors.New("unavailable")}
	tests := []struct {
		name        string
		policy      RetryPolicy
		errs        []error
		wantCalls   int
		wantRetries int
		wantErr     bool
	}{
		{"first try", fastRetry(2), nil, 1, 0, false},
		{"recovers", fastRetry(2), []error{transient}, 2, 1, false},
		{"exhausted", fastRetry(1), []error{transient, transient, transient}, 2, 1, true},
		{"hard error", fastRetry(3), []error{errors.New("bad request")}, 1, 0, true},
		{"negative retries", RetryPolicy{MaxRetries: -1}, nil, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			retries, err := tt.policy.Do(context.Background(), func() error {
				calls++
				if calls <= len(tt.errs) {
					return tt.errs[calls-1]
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls || retries != tt.wantRetries {
				t.Fatalf("calls=%d retries=%d, want %d/%d", calls, retries, tt.wantCalls, tt.wantRetries)
			}
		})
	}
}

func TestComputeBackoffCaps(t *testing.T) {
	base := 100 * time.Millisecond
	ceiling := 300 * time.Millisecond
	if got := computeBackoff(base, ceiling, 0); got != base {
		t.Fatalf("attempt 0: got %v", got)
	}
	if got := computeBackoff(base, ceiling, 1); got != 200*time.Millisecond {
		t.Fatalf("attempt 1: got %v", got)
	}
	if got := computeBackoff(base, ceiling, 5); got != ceiling {
		t.Fatalf("attempt 5: got %v", got)
	}
}

func TestMockAdapterQueueThenDefault(t *testing.T) {
	m := NewMockAdapter().Enqueue("first").EnqueueError(errors.New("second fails"))
	ctx := context.Background()

	resp, err := m.Generate(ctx, "", "a")
	if err != nil || resp.Content != "first" || resp.Model != "mock-1" {
		t.Fatalf("unexpected first reply: %+v %v", resp, err)
	}
	if _, err := m.Generate(ctx, "", "b"); err == nil {
		t.Fatalf("expected queued error")
	}
	resp, err = m.Generate(ctx, "", "c")
	if err != nil || resp.Content != "mock response:\nc" {
		t.Fatalf("unexpected default reply: %+v %v", resp, err)
	}
	if got := m.Prompts(); len(got) != 3 || got[2] != "c" {
		t.Fatalf("unexpected prompts %v", got)
	}
}
