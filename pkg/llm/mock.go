package llm

import "context"

// MockProvider is a configurable mock for testing gateway and service
// behavior. Set the function fields to control responses.
type MockProvider struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns an empty result and nil error.
	CompleteFunc func(ctx context.Context, req *Request) (*Result, error)

	// StreamFunc is called when Stream is invoked.
	// If nil, forwards ModelName as a single delta.
	StreamFunc func(ctx context.Context, req *Request, onDelta func(string)) (*Result, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// EndpointURL is returned by Endpoint. Defaults to "http://mock-endpoint".
	EndpointURL string

	// Call tracking for verification
	CompleteCalls int
	StreamCalls   int
}

// NewMockProvider creates a new mock with sensible defaults.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ModelName:   "mock-model",
		EndpointURL: "http://mock-endpoint",
	}
}

// Complete implements Provider.
func (m *MockProvider) Complete(ctx context.Context, req *Request) (*Result, error) {
	m.CompleteCalls++
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &Result{}, nil
}

// Stream implements Provider.
func (m *MockProvider) Stream(ctx context.Context, req *Request, onDelta func(string)) (*Result, error) {
	m.StreamCalls++
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req, onDelta)
	}
	if onDelta != nil {
		onDelta(m.ModelName)
	}
	return &Result{Content: m.ModelName}, nil
}

// Model implements Provider.
func (m *MockProvider) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Endpoint implements Provider.
func (m *MockProvider) Endpoint() string {
	if m.EndpointURL == "" {
		return "http://mock-endpoint"
	}
	return m.EndpointURL
}

// Reset clears call tracking counters.
func (m *MockProvider) Reset() {
	m.CompleteCalls = 0
	m.StreamCalls = 0
}

// Ensure MockProvider implements Provider at compile time.
var _ Provider = (*MockProvider)(nil)
