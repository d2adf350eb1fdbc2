// Package handlers exposes the engine over HTTP. Every endpoint speaks a
// flat JSON envelope: success responses carry success plus the payload
// fields at the top level, failures carry success, error, error_kind and
// stage with the status code mapped from the error kind.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
)

// validate checks request DTO struct tags after decoding.
var validate = validator.New(validator.WithRequiredStructEnabled())

// errorBody is the failure envelope.
type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
	Stage     string `json:"stage,omitempty"`
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError renders a pipeline failure as the failure envelope, with the
// HTTP status mapped from the error kind.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	kind := apperrors.KindOf(err)
	body := errorBody{
		Error:     apperrors.UserMessage(err),
		ErrorKind: string(kind),
		Stage:     apperrors.StageOf(err),
	}
	if writeErr := WriteJSON(w, apperrors.HTTPStatus(kind), body); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}

// DecodeJSON parses the request body into dst and validates its struct
// tags. On failure the validation envelope is written and false returned.
func DecodeJSON(w http.ResponseWriter, r *http.Request, logger *zap.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, logger, apperrors.New(apperrors.KindValidation, "", "request body is not valid JSON"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		WriteError(w, logger, apperrors.New(apperrors.KindValidation, "", validationMessage(err)))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		field := strings.ToLower(first.Field())
		if first.Tag() == "required" {
			return fmt.Sprintf("%s is required", field)
		}
		return fmt.Sprintf("%s failed %s validation", field, first.Tag())
	}
	return "invalid request"
}
