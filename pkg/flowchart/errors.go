package flowchart

import "fmt"

// Error codes for structured error reporting. They are only produced by the
// outer surfaces (CLI, HTTP, MCP, input conversion); parsing DSL text never fails.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeParseInput = "PARSE_INPUT"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeQuery      = "QUERY_ERROR"
	ErrCodeExport     = "EXPORT_ERROR"
	ErrCodeIO         = "IO_ERROR"
	ErrCodeTooLarge   = "TOO_LARGE"
)

// FlowError is the structured error type for flowdsl operations.
type FlowError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Source  string         `json:"source,omitempty"`
	Cause   error          `json:"-"`
}

func (e *FlowError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Source, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

// NewError creates a new FlowError.
func NewError(code, message string) *FlowError {
	return &FlowError{Code: code, Message: message}
}

// NewErrorf creates a new FlowError with a formatted message.
func NewErrorf(code, format string, args ...any) *FlowError {
	return &FlowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithSource attaches the name of the document (file, block, request) the error refers to.
func (e *FlowError) WithSource(source string) *FlowError {
	e.Source = source
	return e
}

// WithCause attaches an underlying cause.
func (e *FlowError) WithCause(err error) *FlowError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *FlowError) WithDetails(details map[string]any) *FlowError {
	e.Details = details
	return e
}
