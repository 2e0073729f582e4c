package constants

import "net/http"

// APIError represents a standardized API error with code, message, and HTTP status.
// Use these predefined errors for consistent API responses across the application.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// WithMessage returns a copy of the APIError with a custom message.
// Useful for validation errors or other dynamic messages.
func (e APIError) WithMessage(message string) APIError {
	return APIError{
		Code:    e.Code,
		Message: message,
		Status:  e.Status,
	}
}

// Common errors - shared across multiple modules
var (
	ErrInvalidRequestBody = APIError{
		Code:    CodeInvalidRequest,
		Message: MsgInvalidRequestBody,
		Status:  http.StatusBadRequest,
	}
	ErrInternalError = APIError{
		Code:    CodeInternalError,
		Message: MsgInternalError,
		Status:  http.StatusInternalServerError,
	}
	ErrUnauthorized = APIError{
		Code:    CodeUnauthorized,
		Message: MsgUnauthorized,
		Status:  http.StatusUnauthorized,
	}
	ErrUnavailable = APIError{
		Code:    CodeUnavailable,
		Message: MsgUnavailable,
		Status:  http.StatusServiceUnavailable,
	}
)

// Link errors
var (
	ErrBlankURL = APIError{
		Code:    CodeInvalidURL,
		Message: MsgBlankURL,
		Status:  http.StatusBadRequest,
	}
	ErrMalformedURL = APIError{
		Code:    CodeInvalidURL,
		Message: MsgMalformedURL,
		Status:  http.StatusBadRequest,
	}
	ErrInvalidOwner = APIError{
		Code:    CodeInvalidOwner,
		Message: MsgInvalidOwner,
		Status:  http.StatusBadRequest,
	}
	ErrLinkNotFound = APIError{
		Code:    CodeLinkNotFound,
		Message: MsgLinkNotFound,
		Status:  http.StatusNotFound,
	}
	ErrLinkExpired = APIError{
		Code:    CodeLinkExpired,
		Message: MsgLinkExpired,
		Status:  http.StatusGone,
	}
	ErrKeyAssignFailed = APIError{
		Code:    CodeKeySpaceExhausted,
		Message: MsgKeyAssignFailed,
		Status:  http.StatusServiceUnavailable,
	}
)
