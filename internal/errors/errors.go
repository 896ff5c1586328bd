package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorType represents the type of error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeFileSystem
	ErrorTypeParsing
	ErrorTypeConfiguration
	ErrorTypeDevice
	ErrorTypeCapability
	ErrorTypePermission
	ErrorTypeTimeout
	ErrorTypeNotFound
	ErrorTypeInstall
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeFileSystem:
		return "FILESYSTEM"
	case ErrorTypeParsing:
		return "PARSING"
	case ErrorTypeConfiguration:
		return "CONFIGURATION"
	case ErrorTypeDevice:
		return "DEVICE"
	case ErrorTypeCapability:
		return "CAPABILITY"
	case ErrorTypePermission:
		return "PERMISSION"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeInstall:
		return "INSTALL"
	default:
		return "UNKNOWN"
	}
}

// ToolError represents an enhanced error with context and suggestions
type ToolError struct {
	Type        ErrorType         `json:"type"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Cause       error             `json:"cause,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Stack       []string          `json:"stack,omitempty"`
	Retryable   bool              `json:"retryable"`
}

// Error implements the error interface
func (e *ToolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *ToolError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *ToolError) Is(target error) bool {
	if t, ok := target.(*ToolError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error
func (e *ToolError) WithContext(key, value string) *ToolError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *ToolError) WithSuggestion(suggestion string) *ToolError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *ToolError) WithSuggestions(suggestions []string) *ToolError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// SetRetryable marks the error as retryable or not
func (e *ToolError) SetRetryable(retryable bool) *ToolError {
	e.Retryable = retryable
	return e
}

// FormatDetailed returns a detailed error message with context and suggestions
func (e *ToolError) FormatDetailed() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("%s Error [%s]: %s\n", e.Type.String(), e.Code, e.Message))

	if len(e.Context) > 0 {
		builder.WriteString("\nContext:\n")
		for key, value := range e.Context {
			builder.WriteString(fmt.Sprintf("   %s: %s\n", key, value))
		}
	}

	if e.Cause != nil {
		builder.WriteString(fmt.Sprintf("\nUnderlying cause: %v\n", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		builder.WriteString("\nSuggestions:\n")
		for _, suggestion := range e.Suggestions {
			builder.WriteString(fmt.Sprintf("   - %s\n", suggestion))
		}
	}

	if e.Retryable {
		builder.WriteString("\nThis operation can be retried\n")
	}

	return builder.String()
}

// New creates a new ToolError
func New(errorType ErrorType, code, message string) *ToolError {
	return &ToolError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
		Stack:     captureStack(),
	}
}

// Wrap wraps an existing error with a ToolError
func Wrap(err error, errorType ErrorType, code, message string) *ToolError {
	return &ToolError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
		Stack:     captureStack(),
	}
}

// captureStack captures the current stack trace
func captureStack() []string {
	var stack []string

	// Skip the first few frames (this function and error creation)
	for i := 2; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		// Only include frames from our project
		if strings.Contains(file, "ADB-APK-Installer-Spoofer") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		}
	}

	return stack
}

// Common error constructors

// NewValidationError creates a validation error
func NewValidationError(code, message string) *ToolError {
	return New(ErrorTypeValidation, code, message).
		WithSuggestion("Check the input parameters and try again")
}

// NewDeviceError creates a device error
func NewDeviceError(code, message string) *ToolError {
	return New(ErrorTypeDevice, code, message).
		WithSuggestions([]string{
			"Check device connection",
			"Enable USB debugging",
			"Authorize this computer on the device",
			"Try reconnecting the device",
		})
}

// NewCapabilityError creates an error for a missing device capability
func NewCapabilityError(code, message string) *ToolError {
	return New(ErrorTypeCapability, code, message).
		WithSuggestions([]string{
			"Verify the device is rooted if root is required",
			"Check that the resetprop utility is installed",
		})
}

// NewPermissionError creates a permission error
func NewPermissionError(code, message string) *ToolError {
	return New(ErrorTypePermission, code, message).
		WithSuggestions([]string{
			"Check file/directory permissions",
			"Run with appropriate privileges",
		})
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(code, message string) *ToolError {
	return New(ErrorTypeTimeout, code, message).
		SetRetryable(true).
		WithSuggestions([]string{
			"Increase timeout duration",
			"Check the device connection",
			"Try the operation again",
		})
}

// NewNotFoundError creates a not found error
func NewNotFoundError(code, message string) *ToolError {
	return New(ErrorTypeNotFound, code, message).
		WithSuggestions([]string{
			"Verify the resource exists",
			"Check the path or identifier",
		})
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(code, message string) *ToolError {
	return New(ErrorTypeConfiguration, code, message).
		WithSuggestions([]string{
			"Check the configuration file syntax",
			"Run 'apkspoof init' to regenerate configuration",
		})
}

// NewInstallError creates an installation error
func NewInstallError(code, message string) *ToolError {
	return New(ErrorTypeInstall, code, message)
}
