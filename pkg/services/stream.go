package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/logging"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/prompts"
	sqlpkg "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/sql"
)

// Stream event types, one per NDJSON line.
const (
	EventStatus      = "status"
	EventSQL         = "sql"
	EventResults     = "results"
	EventAnswerChunk = "answer_chunk"
	EventDone        = "done"
	EventError       = "error"
)

// Pipeline phases reported by status events, in emission order.
const (
	PhasePreparing     = "preparing"
	PhaseGeneratingSQL = "generating_sql"
	PhaseExecuting     = "executing"
	PhaseProcessing    = "processing"
	PhaseExplaining    = "explaining"
)

// StreamEvent is one line of the stream-query response.
type StreamEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	// Error events carry the envelope classification alongside the message.
	ErrorKind string `json:"error_kind,omitempty"`
	Stage     string `json:"stage,omitempty"`
}

// EventSink delivers one event to the client. A sink error means the
// client is gone; the pipeline stops immediately.
type EventSink func(event *StreamEvent) error

func statusEvent(phase string) *StreamEvent {
	return &StreamEvent{Type: EventStatus, Data: phase}
}

func errorEvent(err error) *StreamEvent {
	return &StreamEvent{
		Type:      EventError,
		Data:      apperrors.UserMessage(err),
		ErrorKind: string(apperrors.KindOf(err)),
		Stage:     apperrors.StageOf(err),
	}
}

func (s *queryService) StreamNLQuery(ctx context.Context, req *NLQueryRequest, emit EventSink) error {
	// fail reports a pipeline failure on the stream and hands the error
	// back for logging. The emit error is secondary: the pipeline error
	// is what the caller should see.
	fail := func(err error) error {
		_ = emit(errorEvent(err))
		return err
	}

	if err := emit(statusEvent(PhasePreparing)); err != nil {
		return err
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return fail(apperrors.Wrap(apperrors.KindValidation, apperrors.StagePromptAssembly, apperrors.ErrEmptyQuestion))
	}

	conn, err := s.conns.Connect(ctx, req.Config)
	if err != nil {
		return fail(err)
	}
	defer conn.Close()

	if err := emit(statusEvent(PhaseGeneratingSQL)); err != nil {
		return err
	}

	stmt, _, err := s.generateSQL(ctx, conn, question, req.History)
	if err != nil {
		return fail(err)
	}
	if err := emit(&StreamEvent{Type: EventSQL, Data: stmt}); err != nil {
		return err
	}

	if err := emit(statusEvent(PhaseExecuting)); err != nil {
		return err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	results := &DirectSQLResult{}
	var answerInput *prompts.AnswerPromptInput
	if sqlpkg.IsReadLike(stmt) {
		queryResult, err := conn.Query(execCtx, stmt, s.cfg.MaxRows)
		if err != nil {
			return fail(apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err))
		}
		results.Columns = queryResult.Columns
		results.Rows = queryResult.Rows
		results.RowCount = queryResult.RowCount
		results.Truncated = queryResult.Truncated
		answerInput = answerInputForRows(question, stmt, queryResult)
	} else {
		execResult, err := conn.Execute(execCtx, stmt)
		if err != nil {
			return fail(apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err))
		}
		affected := execResult.RowsAffected
		results.AffectedRows = &affected
		answerInput = answerInputForAffected(question, stmt, affected)
	}

	if err := emit(statusEvent(PhaseProcessing)); err != nil {
		return err
	}
	if err := emit(&StreamEvent{Type: EventResults, Data: results}); err != nil {
		return err
	}

	if err := emit(statusEvent(PhaseExplaining)); err != nil {
		return err
	}

	// Explanation failure degrades the same way the blocking pipeline
	// does: the results above are already delivered and stay valid.
	var sinkErr error
	streamErr := s.gateway.StreamExplanation(ctx, prompts.BuildAnswerPrompt(answerInput), func(delta string) {
		if sinkErr != nil {
			return
		}
		sinkErr = emit(&StreamEvent{Type: EventAnswerChunk, Data: delta})
	})
	if sinkErr != nil {
		return sinkErr
	}
	if streamErr != nil {
		s.logger.Warn("Streamed explanation failed, serving fallback",
			zap.String("error", logging.SanitizeError(streamErr)))
		if err := emit(&StreamEvent{Type: EventAnswerChunk, Data: answerFallback}); err != nil {
			return err
		}
	}

	return emit(&StreamEvent{Type: EventDone})
}
