package embed

import "fmt"

// New builds a Provider for the given config.EmbeddingConfig-shaped fields.
// "local" and "openai" both speak the same /embed HTTP contract; the
// distinction is which endpoint and model a deployment points at.
func New(provider, endpoint, model string, dimensions int) (Provider, error) {
	switch provider {
	case "local", "openai":
		return NewHTTPProvider(endpoint, model, dimensions), nil
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}
