package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so transports can map them to status codes.
type ErrorKind string

const (
	// KindSchemaMismatch marks a feature vector that does not fit a model's columns.
	KindSchemaMismatch ErrorKind = "schema_mismatch"
	// KindArtifactLoad marks a missing or corrupt model artifact or dataset.
	KindArtifactLoad ErrorKind = "artifact_load"
	// KindRemoteService marks a failed call to the text-generation service.
	KindRemoteService ErrorKind = "remote_service"
	// KindNotFound marks an unknown customer or model.
	KindNotFound ErrorKind = "not_found"
	// KindInvalidInput marks a request rejected before reaching the pipeline.
	KindInvalidInput ErrorKind = "invalid_input"
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError of the given kind.
func NewAppError(kind ErrorKind, op, msg string, err error) error {
	return &AppError{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
