package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeInput    ErrorType = "input"
	ErrorTypeVersion  ErrorType = "version"
	ErrorTypeOutput   ErrorType = "output"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeInternal ErrorType = "internal"
)

// DiceError is a structured error type with context.
type DiceError struct {
	Type     ErrorType
	Code     string
	Message  string
	Cause    error
	Context  map[string]interface{}
	FilePath string
	Line     int
}

// Error implements the error interface.
func (e *DiceError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *DiceError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *DiceError) Is(target error) bool {
	var t *DiceError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *DiceError) WithContext(key string, value interface{}) *DiceError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *DiceError) WithLocation(filePath string, line int) *DiceError {
	e.FilePath = filePath
	e.Line = line

	return e
}

// Error creation functions

// NewInputError creates an error for preprocessor input that cannot be parsed.
func NewInputError(message string, cause error) *DiceError {
	return &DiceError{
		Type:    ErrorTypeInput,
		Code:    ErrCodeInputInvalid,
		Message: message,
		Cause:   cause,
	}
}

// NewVersionError creates an error for a version string that cannot be parsed.
func NewVersionError(message string, cause error) *DiceError {
	return &DiceError{
		Type:    ErrorTypeVersion,
		Code:    ErrCodeVersionInvalid,
		Message: message,
		Cause:   cause,
	}
}

// NewOutputError creates an error for a book that cannot be written back.
func NewOutputError(message string, cause error) *DiceError {
	return &DiceError{
		Type:    ErrorTypeOutput,
		Code:    ErrCodeOutputFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *DiceError {
	return &DiceError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeConfigInvalid,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *DiceError {
	return &DiceError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *DiceError {
	return &DiceError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternal,
		Message: message,
		Cause:   cause,
	}
}

// IsType checks if an error carries the given type.
func IsType(err error, t ErrorType) bool {
	var de *DiceError
	if errors.As(err, &de) {
		return de.Type == t
	}

	return false
}

// ExitCode returns the process exit code for err. Every failure is fatal
// and maps to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// ErrorHandler provides centralized error reporting.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error with its type and code and returns the exit code the
// process should use.
func (h *ErrorHandler) Handle(ctx context.Context, err error) int {
	if err == nil {
		return 0
	}
	if h.logger == nil {
		return ExitCode(err)
	}

	var de *DiceError
	if errors.As(err, &de) {
		fields := []interface{}{"type", string(de.Type), "code", de.Code}
		if de.FilePath != "" {
			fields = append(fields, "file", de.FilePath)
		}
		for k, v := range de.Context {
			fields = append(fields, k, v)
		}
		h.logger.Error(ctx, err, "Preprocessor failed", fields...)
	} else {
		h.logger.Error(ctx, err, "Unhandled error occurred")
	}

	return ExitCode(err)
}

// Common error codes.
const (
	ErrCodeInputInvalid   = "ERR_INPUT_INVALID"
	ErrCodeVersionInvalid = "ERR_VERSION_INVALID"
	ErrCodeOutputFailed   = "ERR_OUTPUT_FAILED"
	ErrCodeConfigInvalid  = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound   = "ERR_FILE_NOT_FOUND"
	ErrCodeFileWrite      = "ERR_FILE_WRITE"
	ErrCodeInternal       = "ERR_INTERNAL"
)
