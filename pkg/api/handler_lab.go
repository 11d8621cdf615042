package api

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/labforge/labforge/pkg/services"
)

// createLabHandler handles POST /api/labs/create.
// Installs the lab and launches its pipeline task, returning immediately.
func (s *Server) createLabHandler(c *echo.Context) error {
	var req CreateLabRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &ErrorResponse{
			Error:  "invalid request body",
			Detail: err.Error(),
		})
	}

	labID, status, err := s.labService.CreateLab(services.CreateLabInput{
		Prompt:    req.Prompt,
		DryRun:    req.DryRun,
		EnableRCA: req.EnableRCA,
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, &CreateLabResponse{
		LabID:  labID,
		Status: status,
	})
}

// postMessageHandler handles POST /api/labs/:id/message.
func (s *Server) postMessageHandler(c *echo.Context) error {
	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &ErrorResponse{
			Error:  "invalid request body",
			Detail: err.Error(),
		})
	}

	receipt, err := s.labService.PostMessage(c.Param("id"), req.Content)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, &MessageResponse{
		Status:             "message_received",
		ConversationStatus: receipt.ConversationStatus,
	})
}

// cancelLabHandler handles POST /api/labs/:id/cancel.
func (s *Server) cancelLabHandler(c *echo.Context) error {
	err := s.labService.CancelLab(c.Param("id"))
	if err != nil {
		// A finished lab cannot be cancelled; that is a conflict, not a
		// request defect.
		if errors.Is(err, services.ErrInvalidState) {
			return c.JSON(http.StatusConflict, &ErrorResponse{
				Error:  "lab is not cancellable",
				Detail: err.Error(),
			})
		}
		return writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, &CancelResponse{Status: "cancelled"})
}
