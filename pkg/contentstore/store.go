// Package contentstore provides off-chain storage for agent descriptor
// documents. On-chain records carry only a short descriptor URI; the
// document itself lives in a content store reachable over HTTP, or in
// memory for tests and dry runs.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no content exists at the URI.
var ErrNotFound = errors.New("content not found")

// Store persists descriptor payloads and serves them back by URI.
type Store interface {
	// Put stores payload and returns the URI to reference it by.
	Put(ctx context.Context, payload []byte, contentType string) (string, error)

	// Get retrieves the payload previously stored at uri.
	Get(ctx context.Context, uri string) ([]byte, error)
}

// MemoryStore is an in-process Store for tests and offline tooling.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put stores payload under a fresh mem:// URI.
func (s *MemoryStore) Put(_ context.Context, payload []byte, _ string) (string, error) {
	uri := "mem://" + uuid.NewString()
	buf := make([]byte, len(payload))
	copy(buf, payload)

	s.mu.Lock()
	s.blobs[uri] = buf
	s.mu.Unlock()
	return uri, nil
}

// Get returns the payload stored at uri.
func (s *MemoryStore) Get(_ context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "mem://") {
		return nil, fmt.Errorf("memory store cannot serve %q", uri)
	}
	s.mu.RLock()
	payload, ok := s.blobs[uri]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}
