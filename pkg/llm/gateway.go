package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/metrics"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/retry"
)

// Operation labels for the AI request counter.
const (
	opGenerateSQL   = "generate_sql"
	opExplain       = "explain"
	opStreamExplain = "stream_explain"
)

// Breaker defaults. Five consecutive transport failures open the circuit
// for thirty seconds.
const (
	breakerThreshold  = 5
	breakerResetAfter = 30 * time.Second
)

// Gateway layers retries, a circuit breaker and output extraction over a
// Provider. Transport failures are retried with backoff; auth rejections
// and unparseable output are not.
type Gateway struct {
	provider          Provider
	breaker           *Breaker
	retryCfg          *retry.Config
	timeout           time.Duration
	sqlTemperature    float64
	answerTemperature float64
	maxTokens         int
	logger            *zap.Logger
}

// NewGateway wires a provider with the AI configuration.
func NewGateway(provider Provider, cfg *config.AIConfig, logger *zap.Logger) *Gateway {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries

	return &Gateway{
		provider:          provider,
		breaker:           NewBreaker(breakerThreshold, breakerResetAfter),
		retryCfg:          retryCfg,
		timeout:           cfg.RequestTimeout,
		sqlTemperature:    float64(cfg.SQLTemperature),
		answerTemperature: float64(cfg.AnswerTemperature),
		maxTokens:         cfg.MaxTokens,
		logger:            logger.Named("gateway"),
	}
}

// GenerateSQL sends the generation prompt and parses the reply into a
// statement. An unparseable reply fails closed: the error is returned and
// nothing is handed to the executor.
func (g *Gateway) GenerateSQL(ctx context.Context, prompt string) (*Extraction, error) {
	result, err := g.complete(ctx, &Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: g.sqlTemperature,
		MaxTokens:   g.maxTokens,
	}, apperrors.StageAIGeneration)
	if err != nil {
		return nil, err
	}

	extraction, err := ExtractSQL(result.Content)
	if err != nil {
		g.logger.Warn("Model reply not usable",
			zap.Int("reply_length", len(result.Content)),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.KindAIParse, apperrors.StageAIGeneration, err)
	}
	return extraction, nil
}

// ExplainResults sends the answer prompt and returns the prose reply.
func (g *Gateway) ExplainResults(ctx context.Context, prompt string) (string, error) {
	result, err := g.complete(ctx, &Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: g.answerTemperature,
		MaxTokens:   g.maxTokens,
	}, apperrors.StageAIExplanation)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Content), nil
}

// StreamExplanation streams the answer, forwarding each fragment to
// onDelta. Streaming is not retried: fragments already forwarded cannot
// be taken back.
func (g *Gateway) StreamExplanation(ctx context.Context, prompt string, onDelta func(string)) error {
	if err := g.breaker.Allow(); err != nil {
		metrics.RecordAIRequest(opStreamExplain, string(apperrors.KindAINetwork))
		return apperrors.Wrap(apperrors.KindAINetwork, apperrors.StageAIExplanation, err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.provider.Stream(streamCtx, &Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: g.answerTemperature,
		MaxTokens:   g.maxTokens,
	}, onDelta)
	if err != nil {
		g.breaker.RecordFailure()
		appErr := ToAppError(err, apperrors.StageAIExplanation)
		metrics.RecordAIRequest(opStreamExplain, string(apperrors.KindOf(appErr)))
		return appErr
	}
	g.breaker.RecordSuccess()
	metrics.RecordAIRequest(opStreamExplain, "ok")
	return nil
}

// BreakerState exposes the circuit state for health reporting.
func (g *Gateway) BreakerState() string {
	return g.breaker.State().String()
}

// complete runs one completion with per-attempt timeout, retrying while
// the classified error says it is worth it.
func (g *Gateway) complete(ctx context.Context, req *Request, stage string) (*Result, error) {
	operation := operationForStage(stage)

	if err := g.breaker.Allow(); err != nil {
		metrics.RecordAIRequest(operation, string(apperrors.KindAINetwork))
		return nil, apperrors.Wrap(apperrors.KindAINetwork, stage, err)
	}

	attempt := 0
	result, err := retry.DoIfRetryableWithResult(ctx, g.retryCfg, func() (*Result, error) {
		attempt++
		if attempt > 1 {
			metrics.RecordAIRetry()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		res, err := g.provider.Complete(attemptCtx, req)
		if err != nil {
			g.breaker.RecordFailure()
			return nil, err
		}
		g.breaker.RecordSuccess()
		return res, nil
	})
	if err != nil {
		appErr := ToAppError(err, stage)
		metrics.RecordAIRequest(operation, string(apperrors.KindOf(appErr)))
		return nil, appErr
	}
	metrics.RecordAIRequest(operation, "ok")
	return result, nil
}

func operationForStage(stage string) string {
	if stage == apperrors.StageAIExplanation {
		return opExplain
	}
	return opGenerateSQL
}
