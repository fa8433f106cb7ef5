package utils

import (
	"errors"
	"fmt"

	"github.com/dl-alexandre/sheetmirror/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Auth errors (10-19)
	ExitAuthRequired = 10
	ExitAuthExpired  = 11
	// Source errors (20-29)
	ExitSourceUnavailable      = 20
	ExitSourceFetchError       = 21
	ExitInvalidReferenceFormat = 22
	ExitPermissionDenied       = 23
	// Transfer errors (30-39)
	ExitNetworkError   = 30
	ExitTimeout        = 31
	ExitRateLimited    = 32
	ExitTransferFailed = 33
	// Validation errors (40-49)
	ExitInvalidArgument      = 40
	ExitConfigurationMissing = 41
	ExitInvalidRow           = 42
	// Batch errors
	ExitBatchPartialFailure = 60
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeAuthRequired           = "AUTH_REQUIRED"
	ErrCodeAuthExpired            = "AUTH_EXPIRED"
	ErrCodeFileNotFound           = "FILE_NOT_FOUND"
	ErrCodePermissionDenied       = "PERMISSION_DENIED"
	ErrCodeQuotaExceeded          = "QUOTA_EXCEEDED"
	ErrCodeNetworkError           = "NETWORK_ERROR"
	ErrCodeTimeout                = "TIMEOUT"
	ErrCodeRateLimited            = "RATE_LIMITED"
	ErrCodeInvalidArgument        = "INVALID_ARGUMENT"
	ErrCodeSourceUnavailable      = "SOURCE_UNAVAILABLE"
	ErrCodeSourceFetchError       = "SOURCE_FETCH_ERROR"
	ErrCodeInvalidReferenceFormat = "INVALID_REFERENCE_FORMAT"
	ErrCodeResolutionFailed       = "RESOLUTION_FAILED"
	ErrCodeTransferFailed         = "TRANSFER_FAILED"
	ErrCodeDestinationNotFound    = "DESTINATION_NOT_FOUND"
	ErrCodeConfigurationMissing   = "CONFIGURATION_MISSING"
	ErrCodeInvalidRow             = "INVALID_ROW"
	ErrCodeBatchPartialFailure    = "BATCH_PARTIAL_FAILURE"
	ErrCodeCancelled              = "CANCELLED"
	ErrCodeUnknown                = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err   types.CLIError
	cause error
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithHTTPStatus(status int) *CLIErrorBuilder {
	b.err.HTTPStatus = status
	return b
}

func (b *CLIErrorBuilder) WithDriveReason(reason string) *CLIErrorBuilder {
	b.err.DriveReason = reason
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

// WithCause records the underlying error so errors.Is/As can see through the AppError
func (b *CLIErrorBuilder) WithCause(err error) *CLIErrorBuilder {
	b.cause = err
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// Err builds the AppError directly, keeping the cause
func (b *CLIErrorBuilder) Err() *AppError {
	return &AppError{CLIError: b.err, cause: b.cause}
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeAuthRequired:           ExitAuthRequired,
		ErrCodeAuthExpired:            ExitAuthExpired,
		ErrCodeFileNotFound:           ExitSourceFetchError,
		ErrCodePermissionDenied:       ExitPermissionDenied,
		ErrCodeQuotaExceeded:          ExitRateLimited,
		ErrCodeNetworkError:           ExitNetworkError,
		ErrCodeTimeout:                ExitTimeout,
		ErrCodeRateLimited:            ExitRateLimited,
		ErrCodeInvalidArgument:        ExitInvalidArgument,
		ErrCodeSourceUnavailable:      ExitSourceUnavailable,
		ErrCodeSourceFetchError:       ExitSourceFetchError,
		ErrCodeInvalidReferenceFormat: ExitInvalidReferenceFormat,
		ErrCodeResolutionFailed:       ExitSourceFetchError,
		ErrCodeTransferFailed:         ExitTransferFailed,
		ErrCodeConfigurationMissing:   ExitConfigurationMissing,
		ErrCodeInvalidRow:             ExitInvalidRow,
		ErrCodeBatchPartialFailure:    ExitBatchPartialFailure,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
	cause    error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// WrapAppError creates an AppError with the given code that wraps cause
func WrapAppError(code string, cause error, format string, args ...interface{}) *AppError {
	return NewCLIError(code, fmt.Sprintf(format, args...)).WithCause(cause).Err()
}

// HasCode reports whether any AppError in err's chain carries code
func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.CLIError.Code == code {
			return true
		}
		err = appErr.cause
	}
	return false
}

// ErrorCode returns the code of the outermost AppError, or UNKNOWN
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.CLIError.Code
	}
	return ErrCodeUnknown
}
