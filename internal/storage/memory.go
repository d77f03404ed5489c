package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryObject struct {
	content    []byte
	metadata   *Metadata
	modifiedAt time.Time
}

// MemoryStorage keeps objects in process memory. Used by tests and by
// deployments that do not archive uploads.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

func (m *MemoryStorage) Put(ctx context.Context, key string, content []byte, metadata *Metadata) error {
	if key == "" {
		return fmt.Errorf("invalid storage key %q", key)
	}
	buf := make([]byte, len(content))
	copy(buf, content)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{content: buf, metadata: metadata, modifiedAt: time.Now()}
	return nil
}

func (m *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(obj.content))
	copy(out, obj.content)
	return out, nil
}

func (m *MemoryStorage) GetInfo(ctx context.Context, key string) (*FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	info := &FileInfo{
		Key:        key,
		Size:       int64(len(obj.content)),
		Checksum:   ComputeChecksum(obj.content),
		ModifiedAt: obj.modifiedAt,
		Metadata:   obj.metadata,
	}
	if obj.metadata != nil {
		info.ContentType = obj.metadata.ContentType
	}
	return info, nil
}

func (m *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Len returns the number of stored objects
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
