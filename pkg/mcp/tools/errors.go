package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
)

// ErrorResponse is the structured error carried inside a tool result.
// Actionable failures travel this way so the calling model sees the
// details instead of a swallowed protocol error.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the model can act on: a bad statement, a missing
// table, an empty question. System failures return Go errors instead.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewErrorResultWithDetails creates an error result with extra context,
// for example the list of valid table names next to an unknown one.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// failTool routes a pipeline failure and logs it. Actionable errors log
// at DEBUG since the model is expected to adjust and retry; system
// failures log at ERROR.
func failTool(logger *zap.Logger, tool string, err error) (*mcp.CallToolResult, error) {
	result, sysErr := resultForError(err)
	if sysErr == nil {
		logger.Debug("Tool input rejected",
			zap.String("tool", tool),
			zap.String("stage", apperrors.StageOf(err)),
			zap.Error(err))
		return result, nil
	}
	logger.Error("Tool failed",
		zap.String("tool", tool),
		zap.String("stage", apperrors.StageOf(err)),
		zap.Error(err))
	return nil, err
}

// resultForError routes a pipeline failure. Validation and query errors
// are actionable: the model can fix its SQL or its parameters and retry,
// so they come back as structured error results with the stage attached.
// Everything else (connection refused, provider down, internal faults)
// surfaces as a Go error and becomes a JSON-RPC error.
func resultForError(err error) (*mcp.CallToolResult, error) {
	kind := apperrors.KindOf(err)
	switch kind {
	case apperrors.KindValidation, apperrors.KindQuery, apperrors.KindAIParse:
		resp := ErrorResponse{
			Error:   true,
			Code:    string(kind),
			Stage:   apperrors.StageOf(err),
			Message: apperrors.UserMessage(err),
		}
		jsonBytes, _ := json.Marshal(resp)
		result := mcp.NewToolResultText(string(jsonBytes))
		result.IsError = true
		return result, nil
	default:
		return nil, err
	}
}
