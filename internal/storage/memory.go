package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrObjectNotFound is returned by MemoryObjectStore for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

// Object is a stored blob and its metadata.
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// MemoryObjectStore is an in-memory ObjectStore for tests and local runs.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string]Object
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string]Object)}
}

func (m *MemoryObjectStore) Put(_ context.Context, key string, data []byte, contentType, cacheControl string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{
		Data:         append([]byte(nil), data...),
		ContentType:  contentType,
		CacheControl: cacheControl,
	}
	return nil
}

func (m *MemoryObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryObjectStore) Size(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok {
		return 0, ErrObjectNotFound
	}
	return int64(len(o.Data)), nil
}

// Get returns a copy of the object stored at key.
func (m *MemoryObjectStore) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok {
		return Object{}, false
	}
	o.Data = append([]byte(nil), o.Data...)
	return o, true
}
