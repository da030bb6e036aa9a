package artifact

import (
	"context"
	"sync"
)

// MemoryStore is the blob analogue of repo/memory: it backs tests and
// the no-S3 mode of cmd/monitor. The "public" URLs it hands out resolve
// only through its own Get.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

const memoryBase = "mem://artifacts"

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[key] = cp
	return memoryBase + "/" + key, nil
}

func (m *MemoryStore) Get(ctx context.Context, ref string) ([]byte, error) {
	key := keyFromRef(ref, memoryBase)
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Delete exists so tests can simulate expired baselines.
func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
}
