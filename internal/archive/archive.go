// Package archive persists raw fetched page bodies so analyses can be
// re-run later without refetching. Backends implement analysis.BlobStore.
package archive

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps archived bodies in-process. Used in development and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory builds an in-memory archive.
func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

// PutObject stores a copy of data under path and returns a memory:// URI.
func (m *Memory) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = append([]byte(nil), data...)
	return "memory://" + path, nil
}

// Object returns the stored bytes for path.
func (m *Memory) Object(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[path]
	return data, ok
}

// Len reports the number of archived objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
