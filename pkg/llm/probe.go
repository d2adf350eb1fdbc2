package llm

import (
	"context"
	"fmt"
	"time"
)

// probePrompt is a minimal round trip that any chat-capable model answers.
const probePrompt = "Say 'ok' and nothing else."

// ProbeResult reports whether the configured provider answered a minimal
// completion request.
type ProbeResult struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	ErrorType      ErrorType `json:"error_type,omitempty"`
	Model          string    `json:"model"`
	Endpoint       string    `json:"endpoint,omitempty"`
	BreakerState   string    `json:"breaker_state"`
	ResponseTimeMs int64     `json:"response_time_ms"`
}

// Probe sends a tiny completion to the configured provider and reports
// reachability. It bypasses retries and does not feed the circuit
// breaker: a diagnostic must see the provider as it is right now.
func (g *Gateway) Probe(ctx context.Context) *ProbeResult {
	probeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	_, err := g.provider.Complete(probeCtx, &Request{
		Messages:  []Message{{Role: RoleUser, Content: probePrompt}},
		MaxTokens: 10,
	})
	elapsed := time.Since(start).Milliseconds()

	result := &ProbeResult{
		Model:          g.provider.Model(),
		Endpoint:       g.provider.Endpoint(),
		BreakerState:   g.breaker.State().String(),
		ResponseTimeMs: elapsed,
	}

	if err != nil {
		classified := ClassifyError(err)
		result.ErrorType = classified.Type
		result.Message = probeMessage(classified)
		return result
	}

	result.Success = true
	result.Message = fmt.Sprintf("AI provider reachable (model: %s, %dms)", g.provider.Model(), elapsed)
	return result
}

func probeMessage(err *Error) string {
	switch err.Type {
	case ErrorTypeAuth:
		return "Invalid API key"
	case ErrorTypeModel:
		return "Model not found"
	case ErrorTypeEndpoint:
		if err.Retryable {
			return "Connection failed - check base URL"
		}
		return "Endpoint not found - check base URL"
	default:
		return err.Message
	}
}
