package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"

	"groqkit/pkg/groq"
)

// ErrorBody is the JSON error envelope returned by every endpoint.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeError(c echo.Context, status int, errType, message string) error {
	return c.JSON(status, ErrorBody{Error: ErrorDetail{Type: errType, Message: message}})
}

func invalidRequest(c echo.Context, message string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", message)
}

// handleError converts client errors to HTTP responses. API errors keep the
// upstream status; failures to reach or understand the API are gateway errors.
func handleError(c echo.Context, err error) error {
	var apiErr *groq.APIError
	var transportErr *groq.TransportError
	var decodeErr *groq.DeserializationError

	switch {
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return c.JSON(status, ErrorBody{Error: ErrorDetail{
			Type:    apiErr.Type,
			Message: apiErr.Message,
			Code:    apiErr.Code,
		}})
	case errors.As(err, &transportErr):
		if isTimeout(err) {
			return writeError(c, http.StatusGatewayTimeout, "timeout_error", transportErr.Error())
		}
		return writeError(c, http.StatusBadGateway, string(groq.KindTransport), transportErr.Error())
	case errors.As(err, &decodeErr):
		return writeError(c, http.StatusBadGateway, string(groq.KindDeserialization), decodeErr.Error())
	}

	slog.ErrorContext(c.Request().Context(), "unhandled error", "path", c.Path(), "error", err)
	return writeError(c, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
