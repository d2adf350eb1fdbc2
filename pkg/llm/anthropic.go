package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	client   *anthropic.Client
	endpoint string
	model    string
	logger   *zap.Logger
}

// NewAnthropicProvider creates a provider for the Anthropic API. An empty
// endpoint uses the SDK default.
func NewAnthropicProvider(cfg *ProviderConfig, logger *zap.Logger) (*AnthropicProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")))
	}

	return &AnthropicProvider{
		client:   anthropic.NewClient(cfg.APIKey, opts...),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		logger:   logger.Named("llm.anthropic"),
	}, nil
}

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	resp, err := p.client.CreateMessages(ctx, p.buildRequest(req))
	if err != nil {
		p.logger.Error("Messages request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	content := firstTextBlock(resp.Content)
	if content == "" {
		return nil, NewError(ErrorTypeUnknown, "no text content in response", false, nil)
	}

	p.logger.Info("Messages request finished",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Content:          content,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// Stream implements Provider.
func (p *AnthropicProvider) Stream(ctx context.Context, req *Request, onDelta func(string)) (*Result, error) {
	start := time.Now()
	var content strings.Builder

	resp, err := p.client.CreateMessagesStream(ctx, anthropic.MessagesStreamRequest{
		MessagesRequest: p.buildRequest(req),
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			if data.Delta.Text != nil && *data.Delta.Text != "" {
				content.WriteString(*data.Delta.Text)
				onDelta(*data.Delta.Text)
			}
		},
	})
	if err != nil {
		p.logger.Error("Messages stream failed", zap.Error(err))
		return nil, ClassifyError(err)
	}

	p.logger.Info("Messages stream finished",
		zap.Int("content_length", content.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Content:          content.String(),
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// Model implements Provider.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Endpoint implements Provider.
func (p *AnthropicProvider) Endpoint() string {
	return p.endpoint
}

func (p *AnthropicProvider) buildRequest(req *Request) anthropic.MessagesRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024 // Messages API requires an explicit cap
	}

	messages := make([]anthropic.Message, 0, len(req.Messages))
	for i := range req.Messages {
		msg := &req.Messages[i]
		role := anthropic.RoleUser
		if msg.Role == RoleAssistant {
			role = anthropic.RoleAssistant
		}
		messages = append(messages, anthropic.Message{
			Role: role,
			Content: []anthropic.MessageContent{
				{Type: "text", Text: &msg.Content},
			},
		})
	}

	out := anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		System:    req.System,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		out.Temperature = &temp
	}
	return out
}

func firstTextBlock(blocks []anthropic.MessageContent) string {
	for _, block := range blocks {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}

// Ensure AnthropicProvider implements Provider at compile time.
var _ Provider = (*AnthropicProvider)(nil)
