package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SuccessResponse writes a 200 envelope.
func SuccessResponse(c echo.Context, data, meta interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: meta})
}

// ErrorResponse writes a failure envelope with status.
func ErrorResponse(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorEnvelope{Error: code, Message: message})
}

// ValidationErrorResponse writes a 400 envelope listing field errors.
func ValidationErrorResponse(c echo.Context, details []ValidationError) error {
	msg := "invalid request"
	if len(details) > 0 && details[0].Message != "" {
		msg = details[0].Message
	}
	return c.JSON(http.StatusBadRequest, ErrorEnvelope{Error: CodeBadRequest, Message: msg, Details: details})
}

// AppErrorResponse writes an AppError with its own status, anything else as 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.JSON(appErr.Status, ErrorEnvelope{Error: appErr.Code, Message: appErr.Message, Details: appErr.Details})
	}
	return ErrorResponse(c, http.StatusInternalServerError, CodeInternal, "internal error")
}
