// Package builderrors provides structured error handling for memgraph builds
// with error categorization, key-value context and stack traces.
//
// # Overview
//
// Every failure raised while compiling profiles carries an ErrorType that
// tells the orchestrator how to treat it:
//   - config errors abort before any document is processed
//   - document errors are escalated or skipped depending on the
//     stopOnCriticalError policy
//   - validation errors abort the offending profile
//   - io errors abort the build
//
// # Basic Usage
//
//	err := builderrors.New(builderrors.ErrorTypeValidation, "invalid relation type").
//	    WithDetail("type", "extends").
//	    WithDetail("profile", "WIDGET")
//
//	if err := os.WriteFile(path, data, 0o644); err != nil {
//	    return builderrors.Wrap(err, builderrors.ErrorTypeIO, "failed to write output file").
//	        WithDetail("path", path)
//	}
//
// # Thread Safety
//
// Error instances are not safe for concurrent modification. Finish adding
// details before sharing an error across goroutines.
package builderrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of a build error.
type ErrorType string

const (
	// ErrorTypeConfig represents a malformed or missing build configuration.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeDocument represents a document that cannot be read or parsed.
	ErrorTypeDocument ErrorType = "document"
	// ErrorTypeValidation represents an entity or relation breaking a structural rule.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeIO represents output that cannot be written.
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeInternal represents unexpected internal failures.
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context.
//
// Fields:
//   - Type: categorizes the error for the failure policy
//   - Message: human-readable description
//   - Cause: the underlying error, if any
//   - Details: key-value pairs such as file, profile or line
//   - Stack: call stack at the point of creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error. Calls can be chained.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns the detail stored under key.
func (e *Error) Detail(key string) (interface{}, bool) {
	v, ok := e.Details[key]
	return v, ok
}

// New creates a new error with the given type and message, capturing the
// call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context, preserving the
// original error as the cause. If err is already an *Error its stack trace
// is kept. Returns nil if err is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether the outermost *Error in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsFatal reports whether err must abort the build no matter what the
// document failure policy says. Errors that are not *Error are fatal.
func IsFatal(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return err != nil
	}

	switch e.Type {
	case ErrorTypeDocument, ErrorTypeValidation:
		return false
	case ErrorTypeConfig, ErrorTypeIO, ErrorTypeInternal:
		return true
	default:
		return true
	}
}

// captureStack captures up to maxFrames frames of the current call stack,
// skipping the given number of frames from the top.
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
