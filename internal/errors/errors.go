package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConfiguration is a missing or invalid setting found at startup.
	ErrorTypeConfiguration ErrorType = "Configuration"
	// ErrorTypeStartup is any other failure that keeps the watch loop from starting,
	// most commonly an unreachable target during the initial capture.
	ErrorTypeStartup ErrorType = "Startup"
	// ErrorTypeFetch is a per-target, per-cycle fetch failure.
	ErrorTypeFetch ErrorType = "Fetch"
	// ErrorTypeDelivery is a failed notification send.
	ErrorTypeDelivery ErrorType = "Delivery"
	// ErrorTypeIteration is anything else that escaped a loop iteration.
	ErrorTypeIteration ErrorType = "Iteration"
)

// VahtiError carries a category plus optional guidance shown to operators.
type VahtiError struct {
	Type      ErrorType
	Target    string
	Message   string
	Cause     string
	Solutions []string
	Help      string
	Err       error
}

// Error implements the error interface. The output stays on one line so it
// can be embedded in structured log entries; DisplayError renders the rest.
func (e *VahtiError) Error() string {
	var sb strings.Builder

	if e.Target != "" {
		sb.WriteString(e.Target)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)

	if e.Cause != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Cause)
		sb.WriteString(")")
	}

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

// Unwrap exposes the underlying error to errors.Is / errors.As
func (e *VahtiError) Unwrap() error {
	return e.Err
}

// Format implements fmt.Formatter for custom formatting
func (e *VahtiError) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprintf(f, "%s", e.Error())
	case 'q':
		fmt.Fprintf(f, "%q", e.Error())
	case 'v':
		if f.Flag('+') {
			fmt.Fprintf(f, "[%s] %s", e.Type, e.Error())
		} else {
			fmt.Fprintf(f, "%s", e.Error())
		}
	}
}

// New creates a new VahtiError
func New(errType ErrorType, message string) *VahtiError {
	return &VahtiError{
		Type:    errType,
		Message: message,
	}
}

// Wrap creates a VahtiError around an existing error
func Wrap(errType ErrorType, err error, message string) *VahtiError {
	return &VahtiError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// WithTarget records the watch target the error belongs to
func (e *VahtiError) WithTarget(target string) *VahtiError {
	e.Target = target
	return e
}

// WithCause adds cause information
func (e *VahtiError) WithCause(cause string) *VahtiError {
	e.Cause = cause
	return e
}

// WithSolutions adds solution steps
func (e *VahtiError) WithSolutions(solutions ...string) *VahtiError {
	e.Solutions = append(e.Solutions, solutions...)
	return e
}

// WithHelp adds help command
func (e *VahtiError) WithHelp(help string) *VahtiError {
	e.Help = help
	return e
}

// TypeOf returns the category of err, or "" if err is not a VahtiError.
func TypeOf(err error) ErrorType {
	var vErr *VahtiError
	if stderrors.As(err, &vErr) {
		return vErr.Type
	}
	return ""
}

// IsType reports whether err (or anything it wraps) is a VahtiError of the given type
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// IsFatal reports whether err must stop the process instead of the current cycle.
func IsFatal(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeConfiguration, ErrorTypeStartup:
		return true
	default:
		return false
	}
}

// GetExitCode returns appropriate exit code for error type
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch TypeOf(err) {
	case ErrorTypeConfiguration:
		return 78 // EX_CONFIG
	case ErrorTypeStartup:
		return 69 // EX_UNAVAILABLE
	default:
		return 1
	}
}
