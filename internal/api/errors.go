// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/restock-console/mapeditor/internal/editor"
	"github.com/restock-console/mapeditor/internal/layout"
	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/session"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewUnprocessableError creates a 422 error for a refused editor action
func NewUnprocessableError(code string, cause error) *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    code,
		Message: cause.Error(),
	}
}

// NewBadGatewayError creates a 502 error for a failed backend round trip
func NewBadGatewayError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusBadGateway,
		Code:    "COLLABORATOR_FAILURE",
		Message: "backend request failed",
		Details: cause.Error(),
	}
}

var rejectionCodes = map[layout.RejectReason]string{
	layout.OutOfBounds:      "OUT_OF_BOUNDS",
	layout.Occupied:         "CELL_OCCUPIED",
	layout.InvalidFootprint: "INVALID_FOOTPRINT",
}

var editorErrors = []struct {
	err    error
	status int
	code   string
}{
	{editor.ErrMissingExit, http.StatusUnprocessableEntity, "MISSING_EXIT"},
	{editor.ErrMultipleExits, http.StatusUnprocessableEntity, "MULTIPLE_EXITS"},
	{editor.ErrNotAssignable, http.StatusUnprocessableEntity, "NOT_ASSIGNABLE"},
	{editor.ErrEmptyCell, http.StatusUnprocessableEntity, "EMPTY_CELL"},
	{editor.ErrWrongMode, http.StatusConflict, "WRONG_MODE"},
	{editor.ErrNoDraggedObject, http.StatusConflict, "NO_DRAGGED_OBJECT"},
	{editor.ErrConfirmationRequired, http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED"},
	{editor.ErrUnsavedChanges, http.StatusConflict, "UNSAVED_CHANGES"},
	{editor.ErrSaveInProgress, http.StatusConflict, "SAVE_IN_PROGRESS"},
	{editor.ErrUnknownObject, http.StatusBadRequest, "UNKNOWN_OBJECT"},
	{session.ErrTooManySessions, http.StatusServiceUnavailable, "TOO_MANY_SESSIONS"},
}

// mapError converts domain errors into APIErrors with a distinct code per
// failure. Unknown errors become internal errors.
func mapError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var rej *layout.Rejection
	if errors.As(err, &rej) {
		return NewUnprocessableError(rejectionCodes[rej.Reason], err)
	}
	if errors.Is(err, models.ErrMapNotFound) {
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: err.Error()}
	}
	for _, e := range editorErrors {
		if errors.Is(err, e.err) {
			return &APIError{Status: e.status, Code: e.code, Message: err.Error()}
		}
	}

	var collab *editor.CollaboratorError
	if errors.As(err, &collab) {
		return NewBadGatewayError(err)
	}
	return NewInternalError("unexpected editor failure", err)
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = mapError(err)
		if apiErr.Code == "INTERNAL_ERROR" && !ShowErrorDetails {
			apiErr.Details = ""
		}
	}

	// Send JSON response
	if !c.Response().Committed {
		c.JSON(apiErr.Status, apiErr)
	}
}

// ShowErrorDetails controls whether internal error causes reach clients.
// The server sets it from the configured log level.
var ShowErrorDetails = true

