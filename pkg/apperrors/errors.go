// Package apperrors defines the error taxonomy shared by every pipeline
// stage. Component failures are wrapped into an *Error at the component
// boundary and rendered into the HTTP envelope by the handlers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the response envelope's error_kind field.
type Kind string

const (
	KindConnection Kind = "connection_error"
	KindQuery      Kind = "query_error"
	KindAIAuth     Kind = "ai_auth_error"
	KindAINetwork  Kind = "ai_network_error"
	KindAIParse    Kind = "ai_parse_error"
	KindValidation Kind = "validation_error"
	KindInternal   Kind = "internal_error"
)

// Pipeline stages reported in error envelopes so the user can see which
// step failed (schema fetch / AI generation / SQL execution / ...).
const (
	StageIntrospection  = "schema-introspection"
	StagePromptAssembly = "prompt-assembly"
	StageAIGeneration   = "ai-generation"
	StageSQLValidation  = "sql-validation"
	StageSQLExecution   = "sql-execution"
	StageVisualization  = "visualization"
	StageAIExplanation  = "ai-explanation"
)

var (
	ErrEmptyQuestion      = errors.New("question must not be empty")
	ErrEmptySQL           = errors.New("sql must not be empty")
	ErrMultipleStatements = errors.New("multiple SQL statements are not allowed")
	ErrUnknownTable       = errors.New("table does not exist in the connected database")
	ErrEmptyRowUpdate     = errors.New("row update must contain at least one column")
)

// Error carries the classification and the pipeline stage of a failure.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a literal message.
func New(kind Kind, stage, message string) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message}
}

// Wrap classifies an underlying error. Returns nil when err is nil.
// If err is already classified its kind is preserved and only the stage
// is recorded, so classification done close to the failure wins.
func Wrap(kind Kind, stage string, err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Stage == stage {
			return appErr
		}
		return &Error{Kind: appErr.Kind, Stage: stage, Err: err}
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// KindOf extracts the Kind from any error, defaulting to KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// StageOf extracts the pipeline stage from any error, empty if unknown.
func StageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Stage
	}
	return ""
}

// UserMessage returns the text shown in the error envelope. The wrapped
// driver/provider message is included; stack traces never are.
func UserMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Message != "" && appErr.Err != nil {
			return fmt.Sprintf("%s: %v", appErr.Message, appErr.Err)
		}
		if appErr.Message != "" {
			return appErr.Message
		}
		if appErr.Err != nil {
			return appErr.Err.Error()
		}
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// HTTPStatus maps an error kind to the response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindQuery:
		return http.StatusBadRequest
	case KindConnection, KindAIAuth, KindAIParse:
		return http.StatusBadGateway
	case KindAINetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
