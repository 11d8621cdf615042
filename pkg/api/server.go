// Package api exposes the lab orchestration runtime over HTTP.
package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/labforge/labforge/pkg/services"
)

// Server is the HTTP API server.
type Server struct {
	labService  *services.LabService
	corsOrigins []string

	e    *echo.Echo
	http *http.Server
}

// NewServer creates the API server and registers all routes.
func NewServer(labService *services.LabService, corsOrigins []string) *Server {
	if labService == nil {
		panic("NewServer: labService must not be nil")
	}

	s := &Server{
		labService:  labService,
		corsOrigins: corsOrigins,
	}

	e := echo.New()
	e.Use(securityHeaders())
	e.Use(s.cors())

	e.GET("/health", s.healthHandler)

	labs := e.Group("/api/labs")
	labs.POST("/create", s.createLabHandler)
	labs.POST("/:id/message", s.postMessageHandler)
	labs.POST("/:id/cancel", s.cancelLabHandler)
	labs.GET("/:id/status", s.getLabHandler)
	labs.GET("/:id", s.getLabHandler)
	labs.GET("", s.listLabsHandler)

	s.e = e
	return s
}

// Handler returns the root HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

// Start listens on addr and serves until Shutdown or failure.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.e,
	}
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
