package media

import (
	"context"
	"net/url"
	"sync"
)

// Memory keeps objects in process. URLs use the memory:// scheme.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

// Put implements Backend.
func (m *Memory) Put(ctx context.Context, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.objects[path] = memoryObject{data: buf, contentType: contentType}
	m.mu.Unlock()
	return nil
}

// URL implements Backend.
func (m *Memory) URL(ctx context.Context, path string) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		return "", errObjectNotFound
	}
	return (&url.URL{Scheme: "memory", Path: "/" + path}).String(), nil
}

// Object returns a stored object and its content type.
func (m *Memory) Object(path string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[path]
	return obj.data, obj.contentType, ok
}
