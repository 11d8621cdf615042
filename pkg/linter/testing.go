package linter

import (
	"context"
	"sync"
)

// FakeClient is an in-memory Client for tests. Zero value passes everything.
type FakeClient struct {
	mu sync.Mutex

	// TopologyIssues is returned by every LintTopology call.
	TopologyIssues []Issue
	// CLIFailures maps platform -> failing results returned by LintCLI.
	// Commands not covered report OK.
	CLIFailures map[string][]CommandResult
	// Err, when set, is returned by every call.
	Err error

	topologyCalls int
	cliCalls      int
}

// LintTopology implements Client.
func (f *FakeClient) LintTopology(ctx context.Context, topology string) ([]Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topologyCalls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.TopologyIssues, nil
}

// LintCLI implements Client.
func (f *FakeClient) LintCLI(ctx context.Context, platform string, commands []string, opts CLIOptions) ([]CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cliCalls++
	if f.Err != nil {
		return nil, f.Err
	}
	if failures, ok := f.CLIFailures[platform]; ok {
		return failures, nil
	}
	results := make([]CommandResult, len(commands))
	for i, cmd := range commands {
		results[i] = CommandResult{Command: cmd, OK: true}
	}
	return results, nil
}

// TopologyCalls returns how many LintTopology calls were made.
func (f *FakeClient) TopologyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topologyCalls
}

// CLICalls returns how many LintCLI calls were made.
func (f *FakeClient) CLICalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cliCalls
}
