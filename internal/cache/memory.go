package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Mem es el backend in-process (go-cache). Suficiente para una réplica;
// para varias usar Redis.
type Mem struct {
	c *gocache.Cache

	// go-cache no tiene INCR-with-TTL atómico; serializamos los contadores.
	mu sync.Mutex
}

func NewMemory(defaultTTL time.Duration) *Mem {
	return &Mem{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Mem) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *Mem) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.c.Set(key, value, ttl)
	return nil
}

func (m *Mem) Add(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := m.c.Add(key, value, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *Mem) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.c.Add(key, int64(1), ttl); err == nil {
		return 1, nil
	}
	return m.c.IncrementInt64(key, 1)
}

func (m *Mem) Close() error { return nil }
