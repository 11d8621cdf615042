package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrArtifactNotFound indicates the requested artifact path does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore is the blob storage used to hand payloads and results
// between the core and the runner.
type ArtifactStore interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
}

// HTTPStore accesses the artifact store over plain HTTP: PUT/GET
// {bucket}/{path}.
type HTTPStore struct {
	bucket     string
	httpClient *http.Client
}

// NewHTTPStore creates an artifact store client for the given bucket URL.
func NewHTTPStore(bucket string) *HTTPStore {
	return &HTTPStore{
		bucket:     strings.TrimRight(bucket, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Put implements ArtifactStore.
func (s *HTTPStore) Put(ctx context.Context, path string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.bucket+"/"+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create put request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("artifact store returned HTTP %d for %s", resp.StatusCode, path)
	}
	return nil
}

// Get implements ArtifactStore.
func (s *HTTPStore) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.bucket+"/"+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create get request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", path, ErrArtifactNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artifact store returned HTTP %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

// MemStore is an in-memory ArtifactStore for tests.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

// Put implements ArtifactStore.
func (s *MemStore) Put(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[path] = cp
	return nil
}

// Get implements ArtifactStore.
func (s *MemStore) Get(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrArtifactNotFound)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Paths returns all stored paths (test helper).
func (s *MemStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.blobs))
	for p := range s.blobs {
		out = append(out, p)
	}
	return out
}
