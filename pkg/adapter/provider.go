package adapter

// defaultMaxTokens bounds replies; itineraries for long trips are the
// largest outputs.
const defaultMaxTokens = 4096

type providerConfig struct {
	maxTokens   int
	temperature *float64
	baseURL     string
}

// ProviderOption tunes a provider adapter.
type ProviderOption func(*providerConfig)

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) ProviderOption {
	return func(c *providerConfig) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ProviderOption {
	return func(c *providerConfig) {
		c.temperature = &t
	}
}

// WithBaseURL points the adapter at a different endpoint, such as a proxy
// or a test server.
func WithBaseURL(u string) ProviderOption {
	return func(c *providerConfig) {
		c.baseURL = u
	}
}

func newProviderConfig(opts []ProviderOption) providerConfig {
	c := providerConfig{maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
