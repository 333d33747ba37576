package services

import (
	"context"
	"fmt"
	"sync"
)

// MockS3Service is an in-memory S3Interface for testing
type MockS3Service struct {
	objects    map[string][]byte
	mu         sync.RWMutex
	UploadErr  error
	PresignErr error
	DeleteErr  error
	deleted    []string
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		objects: make(map[string][]byte),
	}
}

// UploadObject stores body in memory, or fails with UploadErr when set
func (m *MockS3Service) UploadObject(_ context.Context, key string, body []byte, _ string) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}
	m.mu.Lock()
	m.objects[key] = append([]byte(nil), body...)
	m.mu.Unlock()
	return nil
}

// GetPresignedURL simulates generating a presigned URL, or fails with
// PresignErr when set
func (m *MockS3Service) GetPresignedURL(_ context.Context, key string) (string, error) {
	if m.PresignErr != nil {
		return "", m.PresignErr
	}
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("file not found in mock S3: %s", key)
	}

	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// DeleteObject removes an object from memory, or fails with DeleteErr when set
func (m *MockS3Service) DeleteObject(_ context.Context, key string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	m.mu.Unlock()
	return nil
}

// Deleted returns the keys removed so far, oldest first
func (m *MockS3Service) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}

// Objects returns a copy of the stored objects (for testing assertions)
func (m *MockS3Service) Objects() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects := make(map[string][]byte, len(m.objects))
	for k, v := range m.objects {
		objects[k] = v
	}
	return objects
}
