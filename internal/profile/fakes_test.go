package profile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ayush/guestbook/backend/internal/models"
)

type memoryFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryFiles) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func (m *memoryFiles) Open(_ context.Context, key string) (io.ReadCloser, string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", 0, fmt.Errorf("%w: object %s", models.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), m.types[key], int64(len(data)), nil
}

func (m *memoryFiles) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryFiles) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

type memoryLinks struct {
	mu    sync.Mutex
	links map[int64][]models.Link
}

func newMemoryLinks() *memoryLinks {
	return &memoryLinks{links: map[int64][]models.Link{}}
}

func (m *memoryLinks) GetLinks(_ context.Context, userID int64) ([]models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.links[userID]; ok {
		return l, nil
	}
	return []models.Link{}, nil
}

func (m *memoryLinks) ReplaceLinks(_ context.Context, userID int64, links []models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[userID] = links
	return nil
}

func (m *memoryLinks) DeleteLinks(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, userID)
	return nil
}

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
