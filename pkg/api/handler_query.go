package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// getLabHandler handles GET /api/labs/:id and GET /api/labs/:id/status.
// Both return the full lab snapshot; the pending-message queue is never part
// of it.
func (s *Server) getLabHandler(c *echo.Context) error {
	snap, err := s.labService.GetLab(c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// listLabsHandler handles GET /api/labs.
func (s *Server) listLabsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.labService.ListLabs())
}
