package adapter

import (
	"context"
	"fmt"
	"sync"
)

type mockReply struct {
	content string
	err     error
}

// MockAdapter returns deterministic responses for local runs and tests.
// Queued replies are consumed first, in order; then exact-prompt matches;
// then the default response followed by the prompt.
type MockAdapter struct {
	mu              sync.Mutex
	queue           []mockReply
	responses       map[string]string
	defaultResponse string
	prompts         []string
	Usage           *Usage
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockAdapter{responses: responses, defaultResponse: defaultResponse}
}

// Enqueue appends replies returned by subsequent Generate calls.
func (a *MockAdapter) Enqueue(contents ...string) *MockAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range contents {
		a.queue = append(a.queue, mockReply{content: c})
	}
	return a
}

// EnqueueError makes the next queued Generate call fail with err.
func (a *MockAdapter) EnqueueError(err error) *MockAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, mockReply{err: err})
	return a
}

// Prompts returns every prompt received so far.
func (a *MockAdapter) Prompts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.prompts))
	copy(out, a.prompts)
	return out
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Generate returns the next deterministic reply for the prompt.
func (a *MockAdapter) Generate(ctx context.Context, model string, prompt string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if model == "" {
		model = "mock-1"
	}

	a.mu.Lock()
	a.prompts = append(a.prompts, prompt)
	var reply *mockReply
	if len(a.queue) > 0 {
		reply = &a.queue[0]
		a.queue = a.queue[1:]
	}
	a.mu.Unlock()

	if reply != nil {
		if reply.err != nil {
			return nil, reply.err
		}
		return &Response{Content: reply.content, Adapter: a.Name(), Model: model, Usage: a.Usage}, nil
	}
	if response, ok := a.responses[prompt]; ok {
		return &Response{Content: response, Adapter: a.Name(), Model: model, Usage: a.Usage}, nil
	}
	content := fmt.Sprintf("%s\n%s", a.defaultResponse, prompt)
	return &Response{Content: content, Adapter: a.Name(), Model: model, Usage: a.Usage}, nil
}
