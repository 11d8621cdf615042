package api

import "github.com/labforge/labforge/pkg/models"

// CreateLabResponse is returned by POST /api/labs/create.
type CreateLabResponse struct {
	LabID  string        `json:"lab_id"`
	Status models.Status `json:"status"`
}

// MessageResponse is returned by POST /api/labs/:id/message.
type MessageResponse struct {
	Status             string        `json:"status"`
	ConversationStatus models.Status `json:"conversation_status"`
}

// CancelResponse is returned by POST /api/labs/:id/cancel.
type CancelResponse struct {
	Status string `json:"status"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Labs    int    `json:"labs"`
}

// ErrorResponse is the wire shape of every error payload.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
