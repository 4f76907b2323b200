package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	// Identity provider failures, one code per user-facing category.
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeNetworkFailure     ErrorCode = "NETWORK_FAILURE"
	ErrCodeEmailInUse         ErrorCode = "EMAIL_IN_USE"
	ErrCodeWeakSecret         ErrorCode = "WEAK_SECRET"
	ErrCodeInvalidEmail       ErrorCode = "INVALID_EMAIL"
	ErrCodeOperationDisabled  ErrorCode = "OPERATION_DISABLED"
	ErrCodeAuthUnknown        ErrorCode = "AUTH_UNKNOWN"

	// Validation failures raised before any write is issued.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeDuplicateCode    ErrorCode = "DUPLICATE_CODE"
	ErrCodeMalformedCode    ErrorCode = "MALFORMED_CODE"
	ErrCodeLastAdmin        ErrorCode = "LAST_ADMIN"
	ErrCodeInvalidStatus    ErrorCode = "INVALID_STATUS"

	// Synchronization failures observed on subscription delivery.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeSyncTransient    ErrorCode = "SYNC_TRANSIENT"

	// Mutation target missing from the local mirror.
	ErrCodeTargetNotFound ErrorCode = "TARGET_NOT_FOUND"
)

// AppError is the single error currency of the action surface: every public
// operation returns either nil or one of these, never a raw provider or
// store error.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrRateLimited        = NewUnauthorizedError("Too many attempts, try again later", ErrCodeRateLimited)
	ErrNetworkFailure     = NewExternalError("Identity provider unreachable", ErrCodeNetworkFailure)
	ErrEmailInUse         = NewConflictError("Email address is already registered", ErrCodeEmailInUse)
	ErrWeakSecret         = NewValidationError("Password does not meet the minimum requirements", ErrCodeWeakSecret)
	ErrInvalidEmail       = NewValidationError("Email address is not valid", ErrCodeInvalidEmail)
	ErrOperationDisabled  = NewForbiddenError("This operation is disabled", ErrCodeOperationDisabled)
	ErrAuthUnknown        = NewUnauthorizedError("Sign-in failed, please try again", ErrCodeAuthUnknown)

	ErrLastAdmin = NewValidationError("At least one active administrator account must remain", ErrCodeLastAdmin)

	ErrPermissionDenied = NewForbiddenError("Remote store denied access to the collection", ErrCodePermissionDenied)
	ErrSyncTransient    = NewExternalError("Synchronization temporarily unavailable", ErrCodeSyncTransient)
)

// NotFound builds the silent no-op error for a mutation whose target is
// missing from the local mirror.
func NotFound(entity string, id int64) *AppError {
	return NewNotFoundError(fmt.Sprintf("%s %d not found", entity, id), ErrCodeTargetNotFound)
}

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is the silent no-op case: the caller
// should abort without notifying the user.
func IsNotFound(err error) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == ErrorTypeNotFound
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType `json:"type"`
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
	})
}
