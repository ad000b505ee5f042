package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeSelfReference  = "SELF_REFERENCE"
	CodeAlreadyPending = "ALREADY_PENDING"
	CodeAlreadyFriends = "ALREADY_FRIENDS"
	CodeCannotSend     = "CANNOT_SEND"
	CodeValidation     = "VALIDATION_ERROR"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeUnavailable    = "UNAVAILABLE"
	CodeInternal       = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on the error code so errors.Is(err, ErrAlreadyPending) works
// for any AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound       = &AppError{Code: CodeNotFound}
	ErrSelfReference  = &AppError{Code: CodeSelfReference}
	ErrAlreadyPending = &AppError{Code: CodeAlreadyPending}
	ErrAlreadyFriends = &AppError{Code: CodeAlreadyFriends}
	ErrCannotSend     = &AppError{Code: CodeCannotSend}
	ErrValidation     = &AppError{Code: CodeValidation}
	ErrUnavailable    = &AppError{Code: CodeUnavailable}
	ErrInternal       = &AppError{Code: CodeInternal}
)

// Predefined error constructors

// NewNotFoundError reports a missing (or not visible) resource. The message
// never says whether the row exists for somebody else.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func NewSelfReferenceError(message string) *AppError {
	return &AppError{
		Code:    CodeSelfReference,
		Message: message,
	}
}

func NewAlreadyPendingError() *AppError {
	return &AppError{
		Code:    CodeAlreadyPending,
		Message: "A friend request between these users is already pending",
	}
}

func NewAlreadyFriendsError() *AppError {
	return &AppError{
		Code:    CodeAlreadyFriends,
		Message: "Users are already friends",
	}
}

func NewCannotSendError() *AppError {
	return &AppError{
		Code:    CodeCannotSend,
		Message: "A friend request cannot be sent to this user",
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewUnavailableError wraps a store timeout or serialization failure. The
// operation is safe to retry.
func NewUnavailableError(err error) *AppError {
	return &AppError{
		Code:    CodeUnavailable,
		Message: "Service temporarily unavailable, please retry",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// ErrorCode returns the AppError code in err's chain, or CodeInternal.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error to the status code sent to clients.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case CodeValidation, CodeSelfReference:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeAlreadyPending, CodeAlreadyFriends, CodeCannotSend:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	response := ErrorResponse{Success: false, Code: CodeInternal, Message: "Internal server error"}

	var appErr *AppError
	if errors.As(err, &appErr) {
		response.Code = appErr.Code
		response.Message = appErr.Message
	} else if fe, ok := err.(*fiber.Error); ok {
		response.Code = ""
		response.Message = fe.Message
	}

	return c.Status(status).JSON(response)
}

// RespondWithAppError derives the status from err and renders it.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, HTTPStatus(err), err)
}
