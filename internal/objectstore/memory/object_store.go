// Package memory provides an in-memory ObjectStore for development and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/forgemedia/portal/internal/portal"
)

// Object captures one stored blob for inspection in tests.
type Object struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// ObjectStore stores blobs in a map and presigns memory:// URLs.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewObjectStore constructs an empty ObjectStore.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string]Object)}
}

// Put reads the upload body into memory under the key.
func (s *ObjectStore) Put(_ context.Context, key string, upload portal.Upload) (portal.PutResult, error) {
	if key == "" {
		return portal.PutResult{}, fmt.Errorf("key is required")
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return portal.PutResult{}, fmt.Errorf("read upload body: %w", err)
	}
	meta := make(map[string]string, len(upload.Metadata))
	for k, v := range upload.Metadata {
		meta[k] = v
	}
	s.mu.Lock()
	s.objects[key] = Object{Data: data, ContentType: upload.ContentType, Metadata: meta}
	s.mu.Unlock()
	return portal.PutResult{Key: key, Size: int64(len(data))}, nil
}

// PresignGet returns a memory:// URL carrying the expiry, for tests and local
// development only.
func (s *ObjectStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %s does not exist", key)
	}
	return fmt.Sprintf("memory://local/%s?expires_in=%d", url.PathEscape(key), int(ttl.Seconds())), nil
}

// Get returns a stored object for test assertions.
func (s *ObjectStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len reports the number of stored objects.
func (s *ObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
