package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

type entry struct {
	val []byte
	exp time.Time
}

// Memory is an in-process Store, used in tests and single-node setups.
type Memory struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{data: map[string]entry{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.exp.IsZero() && !m.now().Before(e.exp) {
		delete(m.data, key)
		return nil, ErrMiss
	}
	return append([]byte(nil), e.val...), nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *Memory) DeleteMatch(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
		}
	}
	return nil
}

// Has reports whether key holds an unexpired value.
func (m *Memory) Has(key string) bool {
	_, err := m.Get(context.Background(), key)
	return err == nil
}
