package runner

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient is a scripted runner Client for tests. Each Status call pops the
// next scripted status; the final one repeats.
type FakeClient struct {
	mu sync.Mutex

	// SubmitErr, when set, fails Submit.
	SubmitErr error
	// Script is the sequence of statuses returned by Status.
	Script []ExecutionStatus

	submits []string
	nextID  int
	polls   int
}

// Submit implements Client.
func (f *FakeClient) Submit(ctx context.Context, payloadRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	f.submits = append(f.submits, payloadRef)
	f.nextID++
	return fmt.Sprintf("exec-%d", f.nextID), nil
}

// Status implements Client.
func (f *FakeClient) Status(ctx context.Context, executionID string) (ExecutionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if len(f.Script) == 0 {
		return ExecutionStatus{State: StateRunning}, nil
	}
	status := f.Script[0]
	if len(f.Script) > 1 {
		f.Script = f.Script[1:]
	}
	return status, nil
}

// Submits returns the payload references submitted so far.
func (f *FakeClient) Submits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.submits))
	copy(out, f.submits)
	return out
}

// Polls returns how many Status calls were made.
func (f *FakeClient) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}
