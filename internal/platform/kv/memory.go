package kv

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// MemoryStore is a process-local Store. It backs tests and the CLI's dry runs
// and follows the same optimistic semantics as RedisStore: Update reads a
// versioned value, runs fn without holding the lock and only writes when the
// version is unchanged.
type MemoryStore struct {
	mu       sync.Mutex
	strings  map[string]string
	versions map[string]uint64
	hashes   map[string]map[string]string
	lists    map[string][]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strings:  make(map[string]string),
		versions: make(map[string]uint64),
		hashes:   make(map[string]map[string]string),
		lists:    make(map[string][]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.strings[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = value
	m.versions[key]++
	return nil
}

func (m *MemoryStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	for i := 0; i < MaxUpdateAttempts; i++ {
		m.mu.Lock()
		current, exists := m.strings[key]
		version := m.versions[key]
		m.mu.Unlock()

		next, err := fn(current, exists)
		if errors.Is(err, ErrSkipWrite) {
			return nil
		}
		if err != nil {
			return err
		}

		m.mu.Lock()
		if m.versions[key] != version {
			m.mu.Unlock()
			continue
		}
		m.strings[key] = next
		m.versions[key]++
		m.mu.Unlock()
		return nil
	}
	return ErrConflict
}

func (m *MemoryStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		m.hashes[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

func (m *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for f, v := range m.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (m *MemoryStore) HDel(_ context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hashes[key]
	for _, f := range fields {
		delete(h, f)
	}
	return nil
}

func (m *MemoryStore) HIncrBy(_ context.Context, key, field string, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	cur := int64(0)
	if raw, ok := h[field]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, errors.New("ERR hash value is not an integer")
		}
		cur = parsed
	}
	cur += n
	h[field] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (m *MemoryStore) PushBounded(_ context.Context, key, value string, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]string{value}, m.lists[key]...)
	if capacity > 0 && len(list) > capacity {
		list = list[:capacity]
	}
	m.lists[key] = list
	return nil
}

// LRange follows Redis index rules, including negative stop offsets.
func (m *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	n := int64(len(list))
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return []string{}, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Push appends a raw list item at the head without trimming. Tests use it to
// plant values an older writer could have left behind.
func (m *MemoryStore) Push(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append([]string{value}, m.lists[key]...)
}
