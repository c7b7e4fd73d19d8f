package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStore is an in-process backend for local runs and tests
// (STORAGE_DRIVER=memory). It enforces the same immutability rule as GCS:
// putting an existing key fails.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrStorage, key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("%w: short write for %s: got %d bytes, want %d", ErrStorage, key, len(data), size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return fmt.Errorf("%w: object %s already exists", ErrStorage, key)
	}
	s.objects[key] = memObject{data: data, contentType: contentType, modified: time.Now()}
	return nil
}

func (s *MemoryStore) get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return obj.data, nil
}

func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := s.get(key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) OpenRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if err := validRange(start, end); err != nil {
		return nil, err
	}
	data, err := s.get(key)
	if err != nil {
		return nil, err
	}
	if end >= int64(len(data)) {
		return nil, fmt.Errorf("%w: range %d-%d beyond %d bytes", ErrStorage, start, end, len(data))
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1])), nil
}

func (s *MemoryStore) Size(ctx context.Context, key string) (int64, error) {
	data, err := s.get(key)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ObjectInfo
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.modified,
			ContentType:  obj.contentType,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Len reports how many objects are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *MemoryStore) Close() error {
	return nil
}
