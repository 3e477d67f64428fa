package spill

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps blobs in a process-local map. It backs spills that
// must survive partition eviction but not a restart, and it is the
// default target in tests. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// publish installs data under name, taking ownership of the slice.
// Callers that retain their buffer must clone before publishing.
func (m *MemoryStore) publish(name string, data []byte) {
	m.mu.Lock()
	m.blobs[name] = data
	m.mu.Unlock()
}

// Open returns a read-only snapshot of the named blob. Later Puts under
// the same name do not show through an already opened blob.
func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	snap := bytes.Clone(data)
	return &memBlob{Reader: bytes.NewReader(snap), data: snap}, nil
}

// Create starts a new writable blob. Nothing is visible under name
// until Close commits the accumulated bytes.
func (m *MemoryStore) Create(_ context.Context, name string) (WritableBlob, error) {
	return &memWriter{store: m, name: name}, nil
}

// Put writes a blob atomically, replacing any previous content.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	m.publish(name, bytes.Clone(data))
	return nil
}

// Delete removes a blob. Deleting a missing name is not an error.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

// List returns the names of all blobs under prefix, sorted.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	names := make([]string, 0, len(m.blobs))
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	m.mu.RUnlock()

	sort.Strings(names)
	return names, nil
}

// memBlob serves reads from a private snapshot. bytes.Reader supplies
// the ReadAt and Size behavior.
type memBlob struct {
	*bytes.Reader
	data []byte
}

func (b *memBlob) Close() error { return nil }

func (b *memBlob) Bytes() ([]byte, error) { return b.data, nil }

// memWriter buffers writes locally and commits them on Close.
type memWriter struct {
	store *MemoryStore
	name  string
	data  []byte
}

func (w *memWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *memWriter) Sync() error { return nil }

func (w *memWriter) Close() error {
	w.store.publish(w.name, w.data)
	w.data = nil
	return nil
}
