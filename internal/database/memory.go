package database

import "sync"

// MemoryBackend holds blobs in process memory. Used by tests and ephemeral runs.
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string][]byte)}
}

func (b *MemoryBackend) Read(name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.blobs[name]
	if !ok {
		return nil, ErrNoBlob
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Write(name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[name] = append([]byte(nil), data...)
	return nil
}
