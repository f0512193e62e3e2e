package apperror

import (
	"errors"
	"net/http"
)

// AppError represents an application error with HTTP status code.
// Kind identifies the business outcome independently of the message, so
// errors.Is matches a customised error against its sentinel.
type AppError struct {
	Code    int          `json:"code"`
	Kind    string       `json:"kind,omitempty"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Is reports whether target is an AppError of the same kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return e == t
	}
	return e.Kind == t.Kind
}

const (
	KindNotFound               = "not_found"
	KindUnauthorized           = "unauthorized"
	KindForbidden              = "forbidden"
	KindBadRequest             = "bad_request"
	KindConflict               = "conflict"
	KindValidation             = "validation_failed"
	KindPolicyNotFound         = "policy_not_found"
	KindReceiptNotFound        = "receipt_not_found"
	KindInvalidAmount          = "invalid_amount"
	KindArrearsExceeded        = "arrears_exceeded"
	KindDuplicateReceiptNumber = "duplicate_receipt_number"
	KindConcurrentModification = "concurrent_modification"
)

// Common errors
var (
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Kind: KindNotFound, Message: "Resource not found"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrForbidden      = &AppError{Code: http.StatusForbidden, Kind: KindForbidden, Message: "Forbidden"}
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Kind: KindBadRequest, Message: "Bad request"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
	ErrConflict       = &AppError{Code: http.StatusConflict, Kind: KindConflict, Message: "Resource already exists"}
	ErrInvalidToken   = &AppError{Code: http.StatusUnauthorized, Kind: KindUnauthorized, Message: "Invalid token"}

	// Ledger outcomes
	ErrPolicyNotFound         = &AppError{Code: http.StatusNotFound, Kind: KindPolicyNotFound, Message: "Policy not found"}
	ErrReceiptNotFound        = &AppError{Code: http.StatusNotFound, Kind: KindReceiptNotFound, Message: "Receipt not found"}
	ErrInvalidAmount          = &AppError{Code: http.StatusBadRequest, Kind: KindInvalidAmount, Message: "Invalid amount"}
	ErrArrearsExceeded        = &AppError{Code: http.StatusUnprocessableEntity, Kind: KindArrearsExceeded, Message: "Payment exceeds the outstanding balance"}
	ErrDuplicateReceiptNumber = &AppError{Code: http.StatusConflict, Kind: KindDuplicateReceiptNumber, Message: "Receipt number already in use"}
	ErrConcurrentModification = &AppError{Code: http.StatusConflict, Kind: KindConcurrentModification, Message: "Policy was modified concurrently, please retry"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Kind:    KindValidation,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Kind:    KindNotFound,
		Message: resource + " not found",
	}
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindConflict,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Kind:    KindBadRequest,
		Message: message,
	}
}

// NewForbiddenError creates a forbidden error with a custom message
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Kind:    KindForbidden,
		Message: message,
	}
}

// NewInvalidAmountError creates an invalid amount error for a named field
func NewInvalidAmountError(field, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Kind:    KindInvalidAmount,
		Message: "Invalid amount",
		Errors:  []FieldError{{Field: field, Message: message}},
	}
}

// NewArrearsExceededError describes a delta that would overdraw the policy
func NewArrearsExceededError(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Kind:    KindArrearsExceeded,
		Message: message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
	}
}
