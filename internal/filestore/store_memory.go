package filestore

import (
	"context"
	"fmt"
	"sync"

	"opsbridge/pkg/platform/sentinel"
)

// MemoryStore keeps folders and objects in process memory. Templates are
// seeded with PutTemplate.
type MemoryStore struct {
	mu      sync.RWMutex
	folders map[string]struct{}
	objects map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		folders: make(map[string]struct{}),
		objects: make(map[string]string),
	}
}

// PutTemplate stores content under id.
func (s *MemoryStore) PutTemplate(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id] = content
}

// Object returns stored content by id.
func (s *MemoryStore) Object(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.objects[id]
	return c, ok
}

func (s *MemoryStore) CreateFolder(_ context.Context, parentID, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if parentID != "" {
		if _, ok := s.folders[parentID]; !ok {
			return "", fmt.Errorf("folder %q: %w", parentID, sentinel.ErrNotFound)
		}
	}
	id := join(parentID, objectName(name))
	s.folders[id] = struct{}{}
	return id, nil
}

func (s *MemoryStore) ReadTemplate(_ context.Context, templateID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.objects[templateID]
	if !ok {
		return "", fmt.Errorf("template %q: %w", templateID, sentinel.ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) CreateDocument(_ context.Context, folderID, name, content string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if folderID != "" {
		if _, ok := s.folders[folderID]; !ok {
			return nil, fmt.Errorf("folder %q: %w", folderID, sentinel.ErrNotFound)
		}
	}
	id := join(folderID, objectName(name))
	s.objects[id] = content
	return &Document{ID: id, URL: "memory://" + id}, nil
}

var _ Store = (*MemoryStore)(nil)
