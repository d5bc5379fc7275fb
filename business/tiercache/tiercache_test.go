package tiercache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adserver/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetExperimentConfig(ctx context.Context, version string, adID int64) (domain.AdExperimentConfig, error) {
	args := m.Called(ctx, version, adID)
	return args.Get(0).(domain.AdExperimentConfig), args.Error(1)
}

func (m *mockStore) SaveExperimentConfig(ctx context.Context, version string, adID int64, cfg domain.AdExperimentConfig) error {
	args := m.Called(ctx, version, adID, cfg)
	return args.Error(0)
}

func (m *mockStore) TrackAdIDs(ctx context.Context, version string, adIDs []int64) error {
	args := m.Called(ctx, version, adIDs)
	return args.Error(0)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, store *mockStore, opts Options) (*Cache, *fakeClock) {
	t.Helper()
	c := New(store, store, opts)
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c.now = clock.Now
	t.Cleanup(c.Close)
	return c, clock
}

func assignment(version string, adID int64) domain.AdExperimentConfig {
	return domain.AdExperimentConfig{
		AdID:                  adID,
		Version:               version,
		ControlGroupID:        "0",
		ExperimentGroupID:     "3",
		ExperimentActionID:    "act_b",
		MainActionID:          "act_a",
		ExperimentActionValue: 0.2,
		MainActionValue:       0.1,
	}
}

func TestGetExperimentConfig_LoadsOnceThenHits(t *testing.T) {
	store := &mockStore{}
	want := assignment("v1", 42)
	store.On("GetExperimentConfig", mock.Anything, "v1", int64(42)).Return(want, nil).Once()

	c, _ := newTestCache(t, store, Options{})

	got, ok := c.GetExperimentConfig(context.Background(), "v1", 42)
	require.True(t, ok)
	assert.Equal(t, want, got)

	got, ok = c.GetExperimentConfig(context.Background(), "v1", 42)
	require.True(t, ok)
	assert.Equal(t, want, got)

	store.AssertNumberOfCalls(t, "GetExperimentConfig", 1)
}

func TestGetExperimentConfig_AbsentIsNotCached(t *testing.T) {
	store := &mockStore{}
	store.On("GetExperimentConfig", mock.Anything, "v1", int64(7)).
		Return(domain.AdExperimentConfig{}, domain.ErrNotFound)

	c, _ := newTestCache(t, store, Options{})

	for i := 0; i < 3; i++ {
		_, ok := c.GetExperimentConfig(context.Background(), "v1", 7)
		assert.False(t, ok)
	}
	store.AssertNumberOfCalls(t, "GetExperimentConfig", 3)
}

func TestGetExperimentConfig_StoreFailureIsAbsent(t *testing.T) {
	store := &mockStore{}
	store.On("GetExperimentConfig", mock.Anything, "v1", int64(7)).
		Return(domain.AdExperimentConfig{}, errors.New("connection refused"))

	c, _ := newTestCache(t, store, Options{})

	got, ok := c.GetExperimentConfig(context.Background(), "v1", 7)
	assert.False(t, ok)
	assert.Equal(t, domain.AdExperimentConfig{}, got)
}

func TestGetExperimentConfig_IdentitylessRecordIsReturnedUncached(t *testing.T) {
	stored := domain.AdExperimentConfig{ExperimentGroupID: "3", ExperimentActionValue: 0.4, MainActionValue: 0.5}
	store := &mockStore{}
	store.On("GetExperimentConfig", mock.Anything, "v1", int64(7)).Return(stored, nil)

	c, _ := newTestCache(t, store, Options{})

	got, ok := c.GetExperimentConfig(context.Background(), "v1", 7)
	require.True(t, ok)
	assert.Equal(t, stored, got)

	got, ok = c.GetExperimentConfig(context.Background(), "v1", 7)
	require.True(t, ok)
	assert.Equal(t, 0.4, got.ExperimentActionValue)
	store.AssertNumberOfCalls(t, "GetExperimentConfig", 2)
}

func TestGetExperimentConfig_ConcurrentMissesShareOneLoad(t *testing.T) {
	release := make(chan time.Time)
	store := &mockStore{}
	store.On("GetExperimentConfig", mock.Anything, "v1", int64(5)).
		WaitUntil(release).
		Return(assignment("v1", 5), nil)

	c, _ := newTestCache(t, store, Options{})

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = c.GetExperimentConfig(context.Background(), "v1", 5)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, ok := range results {
		assert.True(t, ok)
	}
	store.AssertNumberOfCalls(t, "GetExperimentConfig", 1)
}

func TestGetExperimentConfig_VersionsAreDistinct(t *testing.T) {
	store := &mockStore{}
	store.On("GetExperimentConfig", mock.Anything, "v1", int64(1)).Return(assignment("v1", 1), nil).Once()
	store.On("GetExperimentConfig", mock.Anything, "v2", int64(1)).Return(assignment("v2", 1), nil).Once()

	c, _ := newTestCache(t, store, Options{})

	a, ok := c.GetExperimentConfig(context.Background(), "v1", 1)
	require.True(t, ok)
	b, ok := c.GetExperimentConfig(context.Background(), "v2", 1)
	require.True(t, ok)

	assert.Equal(t, "v1", a.Version)
	assert.Equal(t, "v2", b.Version)
	store.AssertExpectations(t)
}

func TestGetExperimentConfig_AbsoluteTTLForcesReload(t *testing.T) {
	store := &mockStore{}
	store.On("GetExperimentConfig", mock.Anything, "v1", int64(42)).Return(assignment("v1", 42), nil)

	c, clock := newTestCache(t, store, Options{TTL: time.Minute, IdleTTL: time.Hour})

	_, ok := c.GetExperimentConfig(context.Background(), "v1", 42)
	require.True(t, ok)

	clock.Advance(30 * time.Second)
	_, ok = c.GetExperimentConfig(context.Background(), "v1", 42)
	require.True(t, ok)
	store.AssertNumberOfCalls(t, "GetExperimentConfig", 1)

	clock.Advance(31 * time.Second)
	_, ok = c.GetExperimentConfig(context.Background(), "v1", 42)
	require.True(t, ok)
	store.AssertNumberOfCalls(t, "GetExperimentConfig", 2)
}

func TestGetExperimentConfig_IdleTTLEvicts(t *testing.T) {
	store := &mockStore{}
	store.On("GetExperimentConfig", mock.Anything, "v1", int64(42)).Return(assignment("v1", 42), nil)

	c, _ := newTestCache(t, store, Options{TTL: time.Hour, IdleTTL: 50 * time.Millisecond})

	_, ok := c.GetExperimentConfig(context.Background(), "v1", 42)
	require.True(t, ok)

	time.Sleep(120 * time.Millisecond)

	_, ok = c.GetExperimentConfig(context.Background(), "v1", 42)
	require.True(t, ok)
	store.AssertNumberOfCalls(t, "GetExperimentConfig", 2)
}

func TestPutExperimentConfig_WritesThrough(t *testing.T) {
	store := &mockStore{}
	cfg := assignment("v1", 9)
	store.On("SaveExperimentConfig", mock.Anything, "v1", int64(9), cfg).Return(nil).Once()

	c, _ := newTestCache(t, store, Options{})
	c.PutExperimentConfig(context.Background(), "v1", 9, cfg)

	got, ok := c.GetExperimentConfig(context.Background(), "v1", 9)
	require.True(t, ok)
	assert.Equal(t, cfg, got)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "GetExperimentConfig", mock.Anything, mock.Anything, mock.Anything)
}

func TestPutExperimentConfig_PersistFailureKeepsCache(t *testing.T) {
	store := &mockStore{}
	cfg := assignment("v1", 9)
	store.On("SaveExperimentConfig", mock.Anything, "v1", int64(9), cfg).Return(errors.New("read only replica"))

	c, _ := newTestCache(t, store, Options{})
	c.PutExperimentConfig(context.Background(), "v1", 9, cfg)

	got, ok := c.GetExperimentConfig(context.Background(), "v1", 9)
	require.True(t, ok)
	assert.Equal(t, cfg, got)
}

func TestPutExperimentConfig_IdentitylessIsCached(t *testing.T) {
	store := &mockStore{}
	cfg := domain.AdExperimentConfig{ExperimentGroupID: "3", MainActionValue: 0.2}
	store.On("SaveExperimentConfig", mock.Anything, "v1", int64(9), cfg).Return(nil).Once()

	c, _ := newTestCache(t, store, Options{})
	c.PutExperimentConfig(context.Background(), "v1", 9, cfg)

	got, ok := c.GetExperimentConfig(context.Background(), "v1", 9)
	require.True(t, ok)
	assert.Equal(t, cfg, got)
	store.AssertNotCalled(t, "GetExperimentConfig", mock.Anything, mock.Anything, mock.Anything)
}

func TestRememberAndListKnown(t *testing.T) {
	store := &mockStore{}
	c, _ := newTestCache(t, store, Options{})

	c.Remember("v1", []int64{30, 10, 20})
	c.Remember("v1", []int64{10})
	c.Remember("v2", []int64{99})

	assert.Equal(t, []int64{10, 20, 30}, c.ListKnown("v1"))
	assert.Equal(t, []int64{99}, c.ListKnown("v2"))
	assert.Empty(t, c.ListKnown("v3"))
}

func TestListKnown_DropsStaleMembers(t *testing.T) {
	store := &mockStore{}
	c, clock := newTestCache(t, store, Options{TTL: time.Minute, IdleTTL: time.Hour})

	c.Remember("v1", []int64{1})
	clock.Advance(2 * time.Minute)
	c.Remember("v1", []int64{2})

	assert.Equal(t, []int64{2}, c.ListKnown("v1"))
}

func TestFlush(t *testing.T) {
	store := &mockStore{}
	store.On("TrackAdIDs", mock.Anything, "v1", []int64{1, 2}).Return(nil).Once()

	c, _ := newTestCache(t, store, Options{})
	c.Remember("v1", []int64{2, 1})

	require.NoError(t, c.Flush(context.Background(), "v1"))
	require.NoError(t, c.Flush(context.Background(), "empty"))
	store.AssertExpectations(t)
}

func TestFlush_PropagatesStoreError(t *testing.T) {
	store := &mockStore{}
	store.On("TrackAdIDs", mock.Anything, "v1", []int64{1}).Return(errors.New("boom"))

	c, _ := newTestCache(t, store, Options{})
	c.Remember("v1", []int64{1})

	assert.Error(t, c.Flush(context.Background(), "v1"))
}
