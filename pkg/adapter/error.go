package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("adapter returned empty response")

// AdapterError is a provider failure with its HTTP status.
type AdapterError struct {
	Provider  string
	Status    int
	Temporary bool
	Err       error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "adapter error"
	}
	prefix := e.Provider
	if prefix == "" {
		prefix = "adapter"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: status %d", prefix, e.Status)
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", prefix, e.Status, e.Err)
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// statusError wraps err for provider, keeping the status when one is known.
func statusError(provider string, status int, err error) error {
	return &AdapterError{Provider: provider, Status: status, Err: err}
}

// IsTransient reports whether a failed generation may succeed on retry:
// timeouts, rate limits, overload and server errors.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var adapterErr *AdapterError
	if !errors.As(err, &adapterErr) {
		return false
	}
	if adapterErr.Temporary {
		return true
	}
	switch s := adapterErr.Status; {
	case s == http.StatusRequestTimeout, s == http.StatusTooManyRequests:
		return true
	case s == 529:
		// Anthropic overload.
		return true
	default:
		return s >= 500 && s <= 599
	}
}
