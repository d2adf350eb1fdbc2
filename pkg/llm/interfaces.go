// Package llm is the gateway between assembled prompts and the configured
// AI provider. Providers wrap one vendor SDK each; the Gateway layers
// retries, a circuit breaker and output extraction on top.
package llm

import (
	"context"
)

// Message roles accepted by both providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation context sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Result carries the completion text and usage counters.
type Result struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider converts a request into a completion against one vendor API.
// Implementations classify transport failures with ClassifyError; they do
// not retry.
type Provider interface {
	// Complete performs a blocking completion.
	Complete(ctx context.Context, req *Request) (*Result, error)

	// Stream performs a streaming completion, invoking onDelta for every
	// content fragment, and returns the accumulated result.
	Stream(ctx context.Context, req *Request, onDelta func(delta string)) (*Result, error)

	// Model returns the configured model name.
	Model() string

	// Endpoint returns the configured base URL.
	Endpoint() string
}
