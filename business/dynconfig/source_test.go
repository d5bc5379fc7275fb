package dynconfig

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"adserver/domain"
)

// memSource is an in-memory Source with per-key error injection.
type memSource struct {
	mu      sync.Mutex
	strings map[string]string
	ints    map[string]int64
	floats  map[string]float64
	hashes  map[string]map[string]string
	fail    map[string]int // remaining failures per key, -1 fails forever
	calls   map[string]int
}

func newMemSource() *memSource {
	return &memSource{
		strings: map[string]string{},
		ints:    map[string]int64{},
		floats:  map[string]float64{},
		hashes:  map[string]map[string]string{},
		fail:    map[string]int{},
		calls:   map[string]int{},
	}
}

func (m *memSource) check(key string) error {
	m.calls[key]++
	n, ok := m.fail[key]
	if !ok || n == 0 {
		return nil
	}
	if n > 0 {
		m.fail[key] = n - 1
	}
	return fmt.Errorf("connection reset reading %s", key)
}

func (m *memSource) GetString(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(key); err != nil {
		return "", err
	}
	v, ok := m.strings[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *memSource) GetInt(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(key); err != nil {
		return 0, err
	}
	v, ok := m.ints[key]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return v, nil
}

func (m *memSource) GetFloat(_ context.Context, key string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(key); err != nil {
		return 0, err
	}
	v, ok := m.floats[key]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return v, nil
}

func (m *memSource) GetHash(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(key); err != nil {
		return nil, err
	}
	return maps.Clone(m.hashes[key]), nil
}

func (m *memSource) setHash(key string, h map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[key] = h
}

func (m *memSource) callCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

// stuckSource blocks on the keys in stuck until the fetch context ends and
// serves everything else from memSource.
type stuckSource struct {
	*memSource
	stuck map[string]bool
}

func (s stuckSource) GetHash(ctx context.Context, key string) (map[string]string, error) {
	if s.stuck[key] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.memSource.GetHash(ctx, key)
}
