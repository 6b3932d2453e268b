package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrDuplicateOperation = errors.New("duplicate operation")
)

// Error codes recorded on documents that reach the error state. They mirror
// the stage that failed so operators can tell a flaky rasterizer from a
// storage outage without reading messages.
const (
	CodeValidation  = "validation_error"
	CodeEnhancement = "enhancement_error"
	CodeRender      = "render_error"
	CodeProduce     = "produce_error"
	CodeUpload      = "upload_error"
	CodeUnknown     = "unknown"
)

// ValidationError rejects a malformed draft before anything is persisted.
// Field is qualified ("experience entry 2: company") so clients can point at
// the offending input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-qualified validation error.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StageError wraps a collaborator failure with the taxonomy code of the
// stage it occurred in. The pipeline classifies exactly once, at the top.
type StageError struct {
	Code string
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError attaches a taxonomy code to err.
func NewStageError(code string, err error) *StageError {
	return &StageError{Code: code, Err: err}
}

// ClassifyError maps an arbitrary pipeline failure to its taxonomy code.
// Unclassified failures fall through to the unknown bucket.
func ClassifyError(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return CodeValidation
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}
