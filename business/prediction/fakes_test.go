package prediction

import (
	"context"
	"sync"

	"adserver/domain"
)

type mapConfig map[string]map[string]string

func (m mapConfig) GetHash(key string) map[string]string { return m[key] }

type memCache struct {
	mu         sync.Mutex
	configs    map[int64]domain.AdExperimentConfig
	remembered map[string][]int64
}

func newMemCache() *memCache {
	return &memCache{
		configs:    make(map[int64]domain.AdExperimentConfig),
		remembered: make(map[string][]int64),
	}
}

func (c *memCache) Remember(version string, adIDs []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remembered[version] = append(c.remembered[version], adIDs...)
}

func (c *memCache) GetExperimentConfig(_ context.Context, version string, adID int64) (domain.AdExperimentConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, ok := c.configs[adID]
	if !ok || cfg.Version != version {
		return domain.AdExperimentConfig{}, false
	}
	return cfg, true
}

type fakeSignals struct {
	mu     sync.Mutex
	window map[int64]domain.AdEvent
	daily  map[int64]domain.AdEvent
	tempt  float64
	err    error
	dates  []string
}

func (f *fakeSignals) RealtimeWindowEvents(_ context.Context, _ string, adID int64) (domain.AdEvent, error) {
	if f.err != nil {
		return domain.AdEvent{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.window[adID], nil
}

func (f *fakeSignals) UserDailyAdEvent(_ context.Context, adID int64, _ string, date string) (domain.AdEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dates = append(f.dates, date)
	if f.err != nil {
		return domain.AdEvent{}, f.err
	}
	return f.daily[adID], nil
}

func (f *fakeSignals) UserDailyTemptClick(context.Context, string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.tempt, nil
}

// stuckSignals never answers; every call returns once its context ends.
type stuckSignals struct{}

func (stuckSignals) RealtimeWindowEvents(ctx context.Context, _ string, _ int64) (domain.AdEvent, error) {
	<-ctx.Done()
	return domain.AdEvent{}, ctx.Err()
}

func (stuckSignals) UserDailyAdEvent(ctx context.Context, _ int64, _ string, _ string) (domain.AdEvent, error) {
	<-ctx.Done()
	return domain.AdEvent{}, ctx.Err()
}

func (stuckSignals) UserDailyTemptClick(ctx context.Context, _ string) (float64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}
