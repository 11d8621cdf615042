// Package registry provides concurrent-safe in-memory storage of labs with
// per-lab mutual exclusion and the pending-message backchannel consumed by
// the Planner controller.
package registry

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/labforge/labforge/pkg/models"
)

// Sentinel errors for registry operations.
var (
	// ErrNotFound indicates the lab ID is unknown.
	ErrNotFound = errors.New("lab not found")

	// ErrInvalidState indicates the lab is not in a state that accepts
	// user messages.
	ErrInvalidState = errors.New("lab is not accepting messages")

	// ErrQueueFull indicates the lab's pending-message queue is at capacity.
	ErrQueueFull = errors.New("pending message queue is full")

	// ErrReplyTimeout indicates no user message arrived within the wait budget.
	ErrReplyTimeout = errors.New("user did not respond in time")

	// ErrNotCancellable indicates the lab is already in a terminal state.
	ErrNotCancellable = errors.New("lab is not in a cancellable state")
)

// entry pairs a lab with its lock and pending-message queue. The channel is
// the only backchannel between the HTTP layer and the pipeline task; it is
// sent to and received from without holding the lab lock.
type entry struct {
	mu        sync.Mutex
	lab       *models.Lab
	pending   chan string
	cancel    context.CancelFunc // pipeline cancel, set once by the driver
	cancelled bool               // cancel requested before the driver registered
}

// Registry owns the map of labs. Map mutations are guarded by the registry
// lock; per-lab field mutations are guarded by that lab's lock.
type Registry struct {
	mu       sync.RWMutex
	labs     map[string]*entry
	queueCap int
}

// New creates an empty registry. queueCap bounds each lab's pending-message
// queue.
func New(queueCap int) *Registry {
	if queueCap <= 0 {
		queueCap = 32
	}
	return &Registry{
		labs:     make(map[string]*entry),
		queueCap: queueCap,
	}
}

// Create generates a fresh lab ID and installs an initial lab in
// planner_running with the conversation seeded with the user's prompt.
func (r *Registry) Create(prompt string, opts models.Options) string {
	id := uuid.New().String()
	now := time.Now().UTC()
	stage := models.StagePlanner

	lab := &models.Lab{
		ID:           id,
		Prompt:       prompt,
		Options:      opts,
		Status:       models.StatusPlannerRunning,
		CurrentStage: &stage,
		CreatedAt:    now,
		UpdatedAt:    now,
		Conversation: []models.Message{
			{Role: models.RoleUser, Content: prompt, Timestamp: now},
		},
	}

	r.mu.Lock()
	r.labs[id] = &entry{
		lab:     lab,
		pending: make(chan string, r.queueCap),
	}
	r.mu.Unlock()

	return id
}

// Get returns a stable snapshot of the lab's public fields.
func (r *Registry) Get(labID string) (models.LabSnapshot, error) {
	e, err := r.entry(labID)
	if err != nil {
		return models.LabSnapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lab.Snapshot(), nil
}

// List returns summaries of all labs, newest first.
func (r *Registry) List() []models.LabSummary {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.labs))
	for _, e := range r.labs {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	summaries := make([]models.LabSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		summaries = append(summaries, e.lab.Summary())
		e.mu.Unlock()
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].LabID > summaries[j].LabID
	})
	return summaries
}

// EnqueueMessage appends a user message to the lab's pending queue. The lab
// must be in planner_running or awaiting_user_input.
func (r *Registry) EnqueueMessage(labID, content string) error {
	e, err := r.entry(labID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lab.Status.AcceptsMessages() {
		return ErrInvalidState
	}

	select {
	case e.pending <- content:
		return nil
	default:
		return ErrQueueFull
	}
}

// Mutate acquires the lab's lock, applies fn atomically, and bumps
// updated_at. Every mutation strictly increases updated_at.
func (r *Registry) Mutate(labID string, fn func(*models.Lab)) error {
	e, err := r.entry(labID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fn(e.lab)

	now := time.Now().UTC()
	if !now.After(e.lab.UpdatedAt) {
		now = e.lab.UpdatedAt.Add(time.Nanosecond)
	}
	e.lab.UpdatedAt = now
	return nil
}

// WaitForMessage blocks until a pending user message is available, the
// timeout elapses, or ctx is cancelled. The lab lock is not held while
// waiting.
func (r *Registry) WaitForMessage(ctx context.Context, labID string, timeout time.Duration) (string, error) {
	e, err := r.entry(labID)
	if err != nil {
		return "", err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-e.pending:
		return msg, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", ErrReplyTimeout
	}
}

// RegisterCancel stores the pipeline cancel function for API-triggered
// cancellation. Called once by the driver before it starts running. A cancel
// request that raced ahead of registration fires immediately.
func (r *Registry) RegisterCancel(labID string, cancel context.CancelFunc) {
	e, err := r.entry(labID)
	if err != nil {
		return
	}
	e.mu.Lock()
	e.cancel = cancel
	fire := e.cancelled
	e.mu.Unlock()
	if fire {
		cancel()
	}
}

// Cancel requests cancellation of a running lab's pipeline.
func (r *Registry) Cancel(labID string) error {
	e, err := r.entry(labID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lab.Status.Terminal() {
		return ErrNotCancellable
	}
	e.cancelled = true
	if e.cancel != nil {
		e.cancel()
	}
	return nil
}

// Len returns the number of labs in the registry.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.labs)
}

func (r *Registry) entry(labID string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.labs[labID]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}
