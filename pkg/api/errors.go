package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/labforge/labforge/pkg/services"
)

// writeServiceError maps service-layer errors onto the error wire shape.
// Validation-class errors surface synchronously; anything else is an
// internal error.
func writeServiceError(c *echo.Context, err error) error {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return c.JSON(http.StatusBadRequest, &ErrorResponse{
			Error:  "validation failed",
			Detail: validErr.Error(),
		})
	}
	if errors.Is(err, services.ErrNotFound) {
		return c.JSON(http.StatusNotFound, &ErrorResponse{Error: "lab not found"})
	}
	if errors.Is(err, services.ErrInvalidState) {
		return c.JSON(http.StatusBadRequest, &ErrorResponse{
			Error:  "invalid lab state",
			Detail: err.Error(),
		})
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return c.JSON(http.StatusInternalServerError, &ErrorResponse{Error: "internal server error"})
}
