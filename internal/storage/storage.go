package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ErrObjectNotFound is returned when a report object does not exist.
var ErrObjectNotFound = errors.New("object not found in storage")

// ReportArchive stores batch refresh reports in object storage.
type ReportArchive interface {
	// PutReport uploads a JSON document under objectKey.
	PutReport(ctx context.Context, objectKey string, body []byte) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading the report directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// MemoryArchive keeps reports in a map. Presigned URLs use the memory:// scheme.
type MemoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	// FailPut makes every PutReport fail, for tests.
	FailPut error
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: map[string][]byte{}}
}

func (m *MemoryArchive) PutReport(_ context.Context, objectKey string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut != nil {
		return m.FailPut
	}
	m.objects[objectKey] = append([]byte(nil), body...)
	return nil
}

func (m *MemoryArchive) GeneratePresignedDownloadURL(_ context.Context, objectKey string, expires time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objectKey]; !ok {
		return "", ErrObjectNotFound
	}
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}
	return fmt.Sprintf("memory://%s?expires=%d", objectKey, int(expires.Seconds())), nil
}

func (m *MemoryArchive) DeleteObject(_ context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey)
	return nil
}

// Object returns a stored report.
func (m *MemoryArchive) Object(objectKey string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[objectKey]
	return b, ok
}
