package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/labforge/labforge/pkg/models"
	"github.com/labforge/labforge/pkg/pipeline"
	"github.com/labforge/labforge/pkg/registry"
)

// minPromptLen is the minimum accepted instructor prompt length.
const minPromptLen = 10

// CreateLabInput contains the domain-level data needed to create a lab.
// Transformed from the HTTP request by the handler.
type CreateLabInput struct {
	Prompt    string
	DryRun    bool
	EnableRCA bool
}

// MessageReceipt is returned after a chat message is accepted.
type MessageReceipt struct {
	ConversationStatus models.Status
}

// LabService handles lab creation, chat message delivery, and reads.
type LabService struct {
	registry *registry.Registry
	driver   *pipeline.Driver
}

// NewLabService creates a new LabService.
func NewLabService(reg *registry.Registry, driver *pipeline.Driver) *LabService {
	if reg == nil {
		panic("NewLabService: registry must not be nil")
	}
	if driver == nil {
		panic("NewLabService: driver must not be nil")
	}
	return &LabService{
		registry: reg,
		driver:   driver,
	}
}

// CreateLab validates the prompt, installs the lab, and launches its
// pipeline task in the background.
func (s *LabService) CreateLab(input CreateLabInput) (string, models.Status, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if len(prompt) < minPromptLen {
		return "", "", NewValidationError("prompt",
			fmt.Sprintf("prompt must be at least %d characters", minPromptLen))
	}

	opts := models.Options{DryRun: input.DryRun, EnableRCA: input.EnableRCA}
	labID := s.registry.Create(prompt, opts)
	s.driver.Launch(labID, opts)
	return labID, models.StatusPlannerRunning, nil
}

// PostMessage enqueues a user chat message for the Planner controller.
func (s *LabService) PostMessage(labID, content string) (MessageReceipt, error) {
	if strings.TrimSpace(content) == "" {
		return MessageReceipt{}, NewValidationError("content", "message content is required")
	}

	if err := s.registry.EnqueueMessage(labID, content); err != nil {
		switch {
		case errors.Is(err, registry.ErrNotFound):
			return MessageReceipt{}, ErrNotFound
		case errors.Is(err, registry.ErrQueueFull):
			return MessageReceipt{}, fmt.Errorf("%w: pending message queue is full", ErrInvalidState)
		case errors.Is(err, registry.ErrInvalidState):
			return MessageReceipt{}, fmt.Errorf("%w: lab is not accepting messages", ErrInvalidState)
		default:
			return MessageReceipt{}, err
		}
	}

	snap, err := s.registry.Get(labID)
	if err != nil {
		return MessageReceipt{}, ErrNotFound
	}
	return MessageReceipt{ConversationStatus: snap.Status}, nil
}

// GetLab returns a stable snapshot of the lab.
func (s *LabService) GetLab(labID string) (models.LabSnapshot, error) {
	snap, err := s.registry.Get(labID)
	if err != nil {
		return models.LabSnapshot{}, ErrNotFound
	}
	return snap, nil
}

// ListLabs returns summaries of all labs, newest first.
func (s *LabService) ListLabs() []models.LabSummary {
	return s.registry.List()
}

// CancelLab requests cancellation of a running lab's pipeline.
func (s *LabService) CancelLab(labID string) error {
	err := s.registry.Cancel(labID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, registry.ErrNotCancellable):
		return fmt.Errorf("%w: lab already finished", ErrInvalidState)
	default:
		return err
	}
}
