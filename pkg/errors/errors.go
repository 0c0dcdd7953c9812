// Package errors defines AppError, the coded error every passportview layer
// returns, and the mapping from codes to HTTP statuses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error class in API responses and logs
type ErrorCode string

const (
	// General (1xxx)
	ErrCodeInternal     ErrorCode = "E1000"
	ErrCodeValidation   ErrorCode = "E1001"
	ErrCodeNotFound     ErrorCode = "E1002"
	ErrCodeForbidden    ErrorCode = "E1004"
	ErrCodeUnauthorized ErrorCode = "E1005"

	// Passport backend (2xxx)
	ErrCodeBackendUnavailable ErrorCode = "E2001"
	ErrCodeBackendResponse    ErrorCode = "E2002"
	ErrCodeBackendNotFound    ErrorCode = "E2003"
	ErrCodeAccessCodeInvalid  ErrorCode = "E2004"

	// Booklet rendering and export (3xxx)
	ErrCodeSkeleton      ErrorCode = "E3001"
	ErrCodeSectionRender ErrorCode = "E3002"
	ErrCodeExport        ErrorCode = "E3003"
	ErrCodeExportTimeout ErrorCode = "E3004"

	// View log database (5xxx)
	ErrCodeDBConnection ErrorCode = "E5001"
	ErrCodeDBQuery      ErrorCode = "E5002"
	ErrCodeDBMigration  ErrorCode = "E5003"

	// Configuration (6xxx)
	ErrCodeConfigNotFound ErrorCode = "E6001"
	ErrCodeConfigInvalid  ErrorCode = "E6002"
	ErrCodeConfigParse    ErrorCode = "E6003"
)

// ExitCodeConfigValidation is the process exit code when the configuration is rejected
const ExitCodeConfigValidation = 2

// statusByCode lists the codes that do not map to 500
var statusByCode = map[ErrorCode]int{
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeAccessCodeInvalid:  http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeBackendNotFound:    http.StatusNotFound,
	ErrCodeBackendUnavailable: http.StatusBadGateway,
	ErrCodeBackendResponse:    http.StatusBadGateway,
	ErrCodeExportTimeout:      http.StatusGatewayTimeout,
}

// AppError is an error with a code, a client-facing message and optional details
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	Details any       `json:"details,omitempty"`
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

// Is matches any AppError with the same code, so errors.Is(err, New(code, ""))
// tests for a code through wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// HTTPStatus returns the response status for the error's code
func (e *AppError) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithDetails attaches details and returns e
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func ErrInternal(message string, err error) *AppError {
	return Wrap(ErrCodeInternal, message, err)
}

func ErrValidation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ErrNotFound reports a missing resource: ErrNotFound("view log") -> "view log not found"
func ErrNotFound(resource string) *AppError {
	return New(ErrCodeNotFound, resource+" not found")
}

func ErrUnauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsAppError reports whether err's chain holds an AppError
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// HasCode reports whether err's chain holds an AppError with code
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &AppError{Code: code})
}
