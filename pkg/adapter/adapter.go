package adapter

import "context"

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Generate sends a prompt to the model and returns its text response.
	Generate(ctx context.Context, model string, prompt string) (*Response, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Generator is an adapter bound to a single model.
// Components that only need free text depend on this.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Response, error)
}
