package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RetryPolicy controls how a Target retries transient failures.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy retries twice with 200ms..2s exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseBackoff: 200 * time.Millisecond, MaxBackoff: 2 * time.Second}
}

// Target binds an adapter to a model and applies retry and fallback policy.
type Target struct {
	adapter  Adapter
	model    string
	retry    RetryPolicy
	fallback *Target
	observe  func(CallReport)
}

// TargetOption configures a Target.
type TargetOption func(*Target)

// WithRetry sets the retry policy.
func WithRetry(p RetryPolicy) TargetOption {
	return func(t *Target) {
		t.retry = p
	}
}

// WithFallback sets a target tried once the primary exhausts its retries.
func WithFallback(fb *Target) TargetOption {
	return func(t *Target) {
		t.fallback = fb
	}
}

// WithObserver registers a callback invoked once per Generate with the
// outcome of the call.
func WithObserver(fn func(CallReport)) TargetOption {
	return func(t *Target) {
		t.observe = fn
	}
}

// Bind returns a Generator calling a with model.
func Bind(a Adapter, model string, opts ...TargetOption) *Target {
	t := &Target{adapter: a, model: model, retry: DefaultRetryPolicy()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// String returns adapter/model.
func (t *Target) String() string {
	if t == nil || t.adapter == nil {
		return "<unbound>"
	}
	return fmt.Sprintf("%s/%s", t.adapter.Name(), t.model)
}

// Generate calls the bound model, retrying transient errors and falling back
// when configured.
func (t *Target) Generate(ctx context.Context, prompt string) (*Response, error) {
	if t == nil || t.adapter == nil {
		return nil, fmt.Errorf("generator is not configured")
	}

	start := time.Now()
	resp, report, err := t.call(ctx, prompt)
	if err != nil && t.fallback != nil && ctx.Err() == nil {
		resp, report, err = t.fallback.call(ctx, prompt)
		report.FallbackUsed = true
	}
	report.Duration = time.Since(start)
	if t.observe != nil {
		t.observe(report)
	}
	return resp, err
}

func (t *Target) call(ctx context.Context, prompt string) (*Response, CallReport, error) {
	report := CallReport{Adapter: t.adapter.Name(), Model: t.model}
	var resp *Response
	retries, err := t.retry.Do(ctx, func() error {
		r, err := t.adapter.Generate(ctx, t.model, prompt)
		if err == nil && r != nil && strings.TrimSpace(r.Content) == "" {
			err = ErrEmptyResponse
		}
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	report.Retries = retries
	if err != nil {
		report.Error = err.Error()
		return nil, report, err
	}
	report.Usage = normalizeUsage(resp.Usage)
	return resp, report, nil
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// retries are spent, backing off between attempts. It returns the number of
// retries made.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) (int, error) {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !IsTransient(err) || attempt >= p.MaxRetries {
			return attempt, err
		}
		if serr := sleepWithContext(ctx, computeBackoff(p.BaseBackoff, p.MaxBackoff, attempt)); serr != nil {
			return attempt, serr
		}
	}
}

func computeBackoff(base, ceiling time.Duration, attempt int) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= ceiling {
			return ceiling
		}
	}
	if backoff > ceiling {
		return ceiling
	}
	return backoff
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
