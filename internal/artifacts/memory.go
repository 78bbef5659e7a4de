package artifacts

import (
	"context"
	"sync"

	"sheaf/internal/services"
)

// Memory is an in-process Store used by tests and dry runs.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailRenames makes the next N renames fail, for retry tests.
	FailRenames int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put stores an object, overwriting any existing value.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

// Keys returns the stored keys, for assertions.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	return keys
}

// Fetch implements Store.
func (m *Memory) Fetch(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "artifacts", "fetch", "object "+key, nil)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Rename implements Store.
func (m *Memory) Rename(_ context.Context, oldKey, newKey string) (RenameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := RenameResult{NewKey: newKey}
	if m.FailRenames > 0 {
		m.FailRenames--
		return result, services.Wrap(services.ErrTransient, "artifacts", "rename", "injected failure", nil)
	}
	if oldKey == newKey {
		return result, nil
	}
	data, ok := m.objects[oldKey]
	if !ok {
		if _, exists := m.objects[newKey]; exists {
			return result, nil
		}
		return result, services.Wrap(services.ErrNotFound, "artifacts", "rename", "object "+oldKey, nil)
	}
	m.objects[newKey] = data
	delete(m.objects, oldKey)
	result.Renamed = true
	return result, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
