package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
)

// ErrEmptyInput reports a request whose input is missing, empty, or
// contains an empty string element.
var ErrEmptyInput = errors.New("input must contain at least one non-empty string")

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeServerError(c *echo.Context, msg string) error {
	return writeError(c, http.StatusInternalServerError, "server_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
