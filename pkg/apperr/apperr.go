// Package apperr implements the error-kind taxonomy the engine surfaces
// through typed results instead of exceptions.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies one of the recovery classes the engine distinguishes.
type Code string

const (
	CodeInvalidArguments  Code = "INVALID_ARGUMENTS"
	CodeToolExecution     Code = "TOOL_EXECUTION_ERROR"
	CodeToolDenied        Code = "TOOL_DENIED"
	CodeStream            Code = "STREAM_ERROR"
	CodeProviderAPI       Code = "PROVIDER_API_ERROR"
	CodeBudgetExceeded    Code = "BUDGET_EXCEEDED"
	CodeCancelled         Code = "CANCELLED"
	CodeStorage           Code = "STORAGE_ERROR"
	CodeSessionNotFound   Code = "SESSION_NOT_FOUND"
	CodeAlreadyRunning    Code = "ALREADY_RUNNING"
	CodeInvalidBranch     Code = "INVALID_BRANCH"
	CodeNotFound          Code = "NOT_FOUND"
	CodeUnsupportedFeature Code = "UNSUPPORTED_FEATURE"
	CodeConversion        Code = "CONVERSION_ERROR"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// AppError is the engine's canonical error shape. Every error path named in
// spec §7 is expressed as an AppError with the matching Code so callers can
// switch on recovery behavior without parsing strings.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Err: cause}
}

// Is reports whether err is an AppError carrying the given code.
func Is(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

func InvalidArguments(msg string) *AppError  { return New(CodeInvalidArguments, msg) }
func ToolDenied(msg string) *AppError        { return New(CodeToolDenied, msg) }
func BudgetExceeded(msg string) *AppError    { return New(CodeBudgetExceeded, msg) }
func Cancelled(msg string) *AppError         { return New(CodeCancelled, msg) }
func SessionNotFound(id string) *AppError    { return New(CodeSessionNotFound, "session not found: "+id) }
func AlreadyRunning(id string) *AppError     { return New(CodeAlreadyRunning, "session already running: "+id) }
func InvalidBranch(msg string) *AppError     { return New(CodeInvalidBranch, msg) }
func NotFound(msg string) *AppError          { return New(CodeNotFound, msg) }
func Storage(msg string, cause error) *AppError {
	return Wrap(CodeStorage, msg, cause)
}
