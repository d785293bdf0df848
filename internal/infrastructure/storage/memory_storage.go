package storage

import (
	"context"
	"errors"
	"path"
	"sync"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/google/uuid"
)

var _ appquoting.FileStorage = (*MemoryFileStorage)(nil)

// StoredFile is a file held by MemoryFileStorage
type StoredFile struct {
	Name        string
	ContentType string
	OwnerID     uuid.UUID
	Data        []byte
}

// MemoryFileStorage keeps files in process memory.
// Use this for development and tests; files are lost on restart.
type MemoryFileStorage struct {
	mu    sync.RWMutex
	files map[string]StoredFile
}

// NewMemoryFileStorage creates an empty MemoryFileStorage
func NewMemoryFileStorage() *MemoryFileStorage {
	return &MemoryFileStorage{files: make(map[string]StoredFile)}
}

// Store implements appquoting.FileStorage
func (s *MemoryFileStorage) Store(_ context.Context, name, mimeType string, data []byte, ownerID uuid.UUID) (string, error) {
	if len(data) == 0 {
		return "", errors.New("file is empty")
	}
	contentType, ext := detectType(name, mimeType, data)
	key := path.Join(ownerID.String(), uuid.NewString()+ext)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = StoredFile{
		Name:        path.Base(name),
		ContentType: contentType,
		OwnerID:     ownerID,
		Data:        append([]byte(nil), data...),
	}
	return key, nil
}

// Delete implements appquoting.FileStorage
func (s *MemoryFileStorage) Delete(_ context.Context, fileID string) error {
	if fileID == "" {
		return errors.New("file ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileID)
	return nil
}

// Get returns a stored file by ID
func (s *MemoryFileStorage) Get(fileID string) (StoredFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileID]
	return f, ok
}

// Len returns the number of stored files
func (s *MemoryFileStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
