package dynconfig

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"adserver/domain"
	"adserver/pkg/logger"
	"adserver/pkg/metrics"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultFetchTimeout  = 2 * time.Second
	defaultFetchAttempts = 3
)

// Source is the backing store the registry is synchronized from.
// Implementations return domain.ErrNotFound for absent keys.
type Source interface {
	GetString(ctx context.Context, key string) (string, error)
	GetInt(ctx context.Context, key string) (int64, error)
	GetFloat(ctx context.Context, key string) (float64, error)
	GetHash(ctx context.Context, key string) (map[string]string, error)
}

type snapshot struct {
	cells map[string]Cell
}

func (s *snapshot) get(key string) Cell {
	if s == nil {
		return nil
	}
	return s.cells[key]
}

// Store is a registry of named, typed config cells. Readers always see a
// complete published snapshot; Refresh builds a new one off to the side
// and swaps it in atomically.
type Store struct {
	source Source

	// mu guards kinds and serializes snapshot publication.
	mu      sync.Mutex
	kinds   map[string]Kind
	current atomic.Pointer[snapshot]

	fetchTimeout  time.Duration
	fetchAttempts int
	newBackOff    func() backoff.BackOff
}

type Option func(*Store)

// WithFetchTimeout bounds each per-key read from the source.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithFetchAttempts sets how many times a failing key is tried per refresh.
func WithFetchAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.fetchAttempts = n
		}
	}
}

func WithBackOff(fn func() backoff.BackOff) Option {
	return func(s *Store) {
		if fn != nil {
			s.newBackOff = fn
		}
	}
}

func New(source Source, opts ...Option) *Store {
	s := &Store{
		source:        source,
		kinds:         make(map[string]Kind),
		fetchTimeout:  defaultFetchTimeout,
		fetchAttempts: defaultFetchAttempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&snapshot{cells: map[string]Cell{}})
	return s
}

// Register declares key with kind. Registering an existing key is a no-op;
// a conflicting kind is ignored and logged.
func (s *Store) Register(key string, kind Kind) {
	if zeroCell(kind) == nil {
		logger.Warn("dynconfig register with unknown kind", "key", key, "kind", int(kind))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.kinds[key]; ok {
		if existing != kind {
			logger.Warn("dynconfig key already registered with another kind",
				"key", key, "kind", existing.String(), "requested", kind.String())
		}
		return
	}
	s.kinds[key] = kind

	cur := s.current.Load()
	next := make(map[string]Cell, len(cur.cells)+1)
	maps.Copy(next, cur.cells)
	next[key] = zeroCell(kind)
	s.current.Store(&snapshot{cells: next})
}

// Keys returns the registered keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.kinds))
	for k := range s.kinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the cell currently published for key.
func (s *Store) Lookup(key string) (Cell, bool) {
	c := s.current.Load().get(key)
	return c, c != nil
}

func (s *Store) GetString(key string) string {
	if v, ok := s.current.Load().get(key).(StringCell); ok {
		return string(v)
	}
	return ""
}

func (s *Store) GetInt(key string) int64 {
	if v, ok := s.current.Load().get(key).(IntCell); ok {
		return int64(v)
	}
	return 0
}

func (s *Store) GetFloat(key string) float64 {
	if v, ok := s.current.Load().get(key).(FloatCell); ok {
		return float64(v)
	}
	return 0
}

// GetHash returns a copy of a hash cell; callers may modify it freely.
func (s *Store) GetHash(key string) map[string]string {
	if v, ok := s.current.Load().get(key).(HashCell); ok {
		return maps.Clone(map[string]string(v))
	}
	return map[string]string{}
}

// Refresh reads every registered key from the source and publishes the
// result as one snapshot. A key that cannot be read falls back to its zero
// value. The returned error only reports which keys failed; the snapshot is
// published either way.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	kinds := maps.Clone(s.kinds)
	s.mu.Unlock()

	prev := s.current.Load()
	next := make(map[string]Cell, len(kinds))

	var errs []error
	for key, kind := range kinds {
		cell, err := s.fetch(ctx, key, kind)
		if err != nil {
			cell = zeroCell(kind)
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Error("dynconfig fetch failed", "key", key, "kind", kind.String(), "error", err)
				metrics.ConfigFetchFailures.WithLabelValues(key).Inc()
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}

		if old := prev.get(key); old != nil && !sameCell(old, cell) {
			logger.Info("dynconfig value changed",
				"key", key, "kind", kind.String(), "prev", Mapping(old), "new", Mapping(cell))
		}
		next[key] = cell
	}

	s.mu.Lock()
	// keys registered while the refresh was in flight keep their current cell
	cur := s.current.Load()
	for key := range s.kinds {
		if _, ok := next[key]; !ok {
			next[key] = cur.get(key)
		}
	}
	s.current.Store(&snapshot{cells: next})
	s.mu.Unlock()

	logger.Debug("dynconfig refreshed", "keys", len(next), "failed", len(errs))
	if len(errs) > 0 {
		metrics.ConfigRefreshTotal.WithLabelValues("partial").Inc()
		return errors.Join(errs...)
	}
	metrics.ConfigRefreshTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *Store) fetch(ctx context.Context, key string, kind Kind) (Cell, error) {
	op := func() (Cell, error) {
		fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()

		cell, err := s.fetchOnce(fctx, key, kind)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, backoff.Permanent(err)
		}
		return cell, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.fetchAttempts)),
	)
}

func (s *Store) fetchOnce(ctx context.Context, key string, kind Kind) (Cell, error) {
	switch kind {
	case KindString:
		v, err := s.source.GetString(ctx, key)
		return StringCell(v), err
	case KindInt:
		v, err := s.source.GetInt(ctx, key)
		return IntCell(v), err
	case KindFloat:
		v, err := s.source.GetFloat(ctx, key)
		return FloatCell(v), err
	case KindHash:
		v, err := s.source.GetHash(ctx, key)
		if v == nil {
			v = map[string]string{}
		}
		return HashCell(v), err
	default:
		return nil, backoff.Permanent(fmt.Errorf("unknown kind %d", kind))
	}
}
