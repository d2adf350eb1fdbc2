package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/retry"
)

func newTestGateway(provider Provider) *Gateway {
	g := NewGateway(provider, &config.AIConfig{
		RequestTimeout:    time.Second,
		MaxRetries:        2,
		SQLTemperature:    0.5,
		AnswerTemperature: 0.7,
		MaxTokens:         256,
	}, zap.NewNop())

	// Short delays keep retry tests fast.
	g.retryCfg = &retry.Config{
		MaxRetries:       2,
		InitialDelay:     time.Millisecond,
		MaxDelay:         5 * time.Millisecond,
		Multiplier:       2.0,
		MaxSameErrorType: 5,
	}
	return g
}

func transientError() error {
	return NewError(ErrorTypeEndpoint, "connection failed", true,
		errors.New("dial tcp 127.0.0.1:9999: connect: connection refused"))
}

func TestGateway_GenerateSQL_Success(t *testing.T) {
	var captured *Request
	mock := NewMockProvider()
	mock.CompleteFunc = func(ctx context.Context, req *Request) (*Result, error) {
		captured = req
		return &Result{Content: "```sql\nSELECT * FROM users\n```"}, nil
	}
	g := newTestGateway(mock)

	got, err := g.GenerateSQL(context.Background(), "list all users")
	if err != nil {
		t.Fatalf("GenerateSQL() error = %v", err)
	}
	if got.SQL != "SELECT * FROM users" {
		t.Errorf("SQL = %q, want %q", got.SQL, "SELECT * FROM users")
	}
	if mock.CompleteCalls != 1 {
		t.Errorf("CompleteCalls = %d, want 1", mock.CompleteCalls)
	}

	if captured.Temperature != 0.5 {
		t.Errorf("Temperature = %v, want 0.5", captured.Temperature)
	}
	if captured.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want 256", captured.MaxTokens)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Content != "list all users" {
		t.Errorf("unexpected messages sent: %+v", captured.Messages)
	}
}

func TestGateway_GenerateSQL_RetriesTransientFailure(t *testing.T) {
	mock := NewMockProvider()
	mock.CompleteFunc = func(ctx context.Context, req *Request) (*Result, error) {
		if mock.CompleteCalls < 3 {
			return nil, transientError()
		}
		return &Result{Content: "SELECT 1"}, nil
	}
	g := newTestGateway(mock)

	got, err := g.GenerateSQL(context.Background(), "anything")
	if err != nil {
		t.Fatalf("GenerateSQL() error = %v", err)
	}
	if got.SQL != "SELECT 1" {
		t.Errorf("SQL = %q, want %q", got.SQL, "SELECT 1")
	}
	if mock.CompleteCalls != 3 {
		t.Errorf("CompleteCalls = %d, want 3 (two transient failures then success)", mock.CompleteCalls)
	}
}

func TestGateway_GenerateSQL_AuthFailsFast(t *testing.T) {
	mock := NewMockProvider()
	mock.CompleteFunc = func(ctx context.Context, req *Request) (*Result, error) {
		return nil, NewError(ErrorTypeAuth, "authentication failed", false, errors.New("401"))
	}
	g := newTestGateway(mock)

	_, err := g.GenerateSQL(context.Background(), "anything")
	if err == nil {
		t.Fatalf("expected error for auth failure")
	}
	if kind := apperrors.KindOf(err); kind != apperrors.KindAIAuth {
		t.Errorf("KindOf = %q, want %q", kind, apperrors.KindAIAuth)
	}
	if stage := apperrors.StageOf(err); stage != apperrors.StageAIGeneration {
		t.Errorf("StageOf = %q, want %q", stage, apperrors.StageAIGeneration)
	}
	if mock.CompleteCalls != 1 {
		t.Errorf("CompleteCalls = %d, want 1 (auth errors are not retried)", mock.CompleteCalls)
	}
}

func TestGateway_GenerateSQL_UnparseableFailsClosed(t *testing.T) {
	mock := NewMockProvider()
	mock.CompleteFunc = func(ctx context.Context, req *Request) (*Result, error) {
		return &Result{Content: "I cannot help with that."}, nil
	}
	g := newTestGateway(mock)

	_, err := g.GenerateSQL(context.Background(), "anything")
	if err == nil {
		t.Fatalf("expected error for unparseable reply")
	}
	if kind := apperrors.KindOf(err); kind != apperrors.KindAIParse {
		t.Errorf("KindOf = %q, want %q", kind, apperrors.KindAIParse)
	}
	if !errors.Is(err, ErrNoSQL) {
		t.Errorf("expected error chain to contain ErrNoSQL, got %v", err)
	}
	if mock.CompleteCalls != 1 {
		t.Errorf("CompleteCalls = %d, want 1 (parse failures are not retried)", mock.CompleteCalls)
	}
}

func TestGateway_GenerateSQL_ModelDeclines(t *testing.T) {
	mock := NewMockProvider()
	mock.CompleteFunc = func(ctx context.Context, req *Request) (*Result, error) {
		return &Result{Content: "ERROR: which year do you mean?"}, nil
	}
	g := newTestGateway(mock)

	_, err := g.GenerateSQL(context.Background(), "total sales")
	if err == nil {
		t.Fatalf("expected error when model declines")
	}
	if kind := apperrors.KindOf(err); kind != apperrors.KindAIParse {
		t.Errorf("KindOf = %q, want %q", kind, apperrors.KindAIParse)
	}

	var ambiguity *AmbiguityError
	if !errors.As(err, &ambiguity) {
		t.Fatalf("expected AmbiguityError in chain, got %v", err)
	}
	if ambiguity.Reason != "which year do you mean?" {
		t.Errorf("Reason = %q, want %q", ambiguity.Reason, "which year do you mean?")
	}
}

func TestGateway_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	mock := NewMockProvider()
	mock.CompleteFunc = func(ctx context.Context, req *Request) (*Result, error) {
		return nil, transientError()
	}
	g := newTestGateway(mock)

	// Each call burns three attempts; five total failures open the circuit.
	for i := 0; i < 2; i++ {
		if _, err := g.GenerateSQL(context.Background(), "anything"); err == nil {
			t.Fatalf("expected failure on call %d", i+1)
		}
	}
	if g.BreakerState() != "open" {
		t.Fatalf("BreakerState = %q, want open", g.BreakerState())
	}

	callsBefore := mock.CompleteCalls
	_, err := g.GenerateSQL(context.Background(), "anything")
	if err == nil {
		t.Fatalf("expected open breaker to reject the request")
	}
	if kind := apperrors.KindOf(err); kind != apperrors.KindAINetwork {
		t.Errorf("KindOf = %q, want %q", kind, apperrors.KindAINetwork)
	}
	if mock.CompleteCalls != callsBefore {
		t.Errorf("expected no provider call while breaker open, got %d extra",
			mock.CompleteCalls-callsBefore)
	}
}

func TestGateway_ExplainResults(t *testing.T) {
	var captured *Request
	mock := NewMockProvider()
	mock.CompleteFunc = func(ctx context.Context, req *Request) (*Result, error) {
		captured = req
		return &Result{Content: "  There are 5 users in total.  "}, nil
	}
	g := newTestGateway(mock)

	got, err := g.ExplainResults(context.Background(), "summarize")
	if err != nil {
		t.Fatalf("ExplainResults() error = %v", err)
	}
	if got != "There are 5 users in total." {
		t.Errorf("answer = %q, want trimmed prose", got)
	}
	if captured.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", captured.Temperature)
	}
}

func TestGateway_StreamExplanation(t *testing.T) {
	mock := NewMockProvider()
	mock.StreamFunc = func(ctx context.Context, req *Request, onDelta func(string)) (*Result, error) {
		for _, chunk := range []string{"There ", "are ", "5."} {
			onDelta(chunk)
		}
		return &Result{Content: "There are 5."}, nil
	}
	g := newTestGateway(mock)

	var sb strings.Builder
	err := g.StreamExplanation(context.Background(), "summarize", func(delta string) {
		sb.WriteString(delta)
	})
	if err != nil {
		t.Fatalf("StreamExplanation() error = %v", err)
	}
	if sb.String() != "There are 5." {
		t.Errorf("streamed = %q, want %q", sb.String(), "There are 5.")
	}
}

func TestGateway_StreamExplanation_FailureNotRetried(t *testing.T) {
	mock := NewMockProvider()
	mock.StreamFunc = func(ctx context.Context, req *Request, onDelta func(string)) (*Result, error) {
		return nil, transientError()
	}
	g := newTestGateway(mock)

	err := g.StreamExplanation(context.Background(), "summarize", func(string) {})
	if err == nil {
		t.Fatalf("expected stream failure to surface")
	}
	if kind := apperrors.KindOf(err); kind != apperrors.KindAINetwork {
		t.Errorf("KindOf = %q, want %q", kind, apperrors.KindAINetwork)
	}
	if mock.StreamCalls != 1 {
		t.Errorf("StreamCalls = %d, want 1 (streams are never retried)", mock.StreamCalls)
	}
}

func TestGateway_Probe_Success(t *testing.T) {
	var captured *Request
	mock := NewMockProvider()
	mock.CompleteFunc = func(ctx context.Context, req *Request) (*Result, error) {
		captured = req
		return &Result{Content: "ok"}, nil
	}
	g := newTestGateway(mock)

	result := g.Probe(context.Background())
	if !result.Success {
		t.Fatalf("Probe() unsuccessful: %s", result.Message)
	}
	if result.Model != "mock-model" {
		t.Errorf("Model = %q, want mock-model", result.Model)
	}
	if result.BreakerState != "closed" {
		t.Errorf("BreakerState = %q, want closed", result.BreakerState)
	}
	if !strings.Contains(result.Message, "reachable") {
		t.Errorf("Message = %q, want reachability note", result.Message)
	}
	if captured.MaxTokens != 10 {
		t.Errorf("probe MaxTokens = %d, want 10", captured.MaxTokens)
	}
}

func TestGateway_Probe_Failure(t *testing.T) {
	mock := NewMockProvider()
	mock.CompleteFunc = func(ctx context.Context, req *Request) (*Result, error) {
		return nil, errors.New("401 Unauthorized")
	}
	g := newTestGateway(mock)

	result := g.Probe(context.Background())
	if result.Success {
		t.Fatalf("expected probe failure")
	}
	if result.ErrorType != ErrorTypeAuth {
		t.Errorf("ErrorType = %q, want %q", result.ErrorType, ErrorTypeAuth)
	}
	if result.Message != "Invalid API key" {
		t.Errorf("Message = %q, want %q", result.Message, "Invalid API key")
	}
}
