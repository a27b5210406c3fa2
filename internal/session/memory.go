package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // 零值表示不过期
}

type memoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// MemoryStore 进程内会话存储，Redis 未启用时使用
type MemoryStore struct {
	Store
	backend *memoryBackend
}

// NewMemoryStore 创建进程内会话存储
func NewMemoryStore(ttl time.Duration, logger *zap.Logger) *MemoryStore {
	b := &memoryBackend{entries: make(map[string]memoryEntry), now: time.Now}
	return &MemoryStore{Store: newStore(b, ttl, logger), backend: b}
}

// Sweep 清理已过期条目，返回清理数量
func (m *MemoryStore) Sweep() int {
	return m.backend.sweep()
}

func (b *memoryBackend) put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = b.now().Add(ttl)
	}
	b.entries[key] = entry
	return nil
}

func (b *memoryBackend) get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil, nil
	}
	if b.expired(entry) {
		delete(b.entries, key)
		return nil, nil
	}
	return append([]byte(nil), entry.value...), nil
}

func (b *memoryBackend) del(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, key)
	return nil
}

func (b *memoryBackend) name() string { return "memory" }

func (b *memoryBackend) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !b.now().Before(e.expiresAt)
}

func (b *memoryBackend) sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := 0
	for k, e := range b.entries {
		if b.expired(e) {
			delete(b.entries, k)
			count++
		}
	}
	return count
}
