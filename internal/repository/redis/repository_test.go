package redis

import (
	"context"
	"testing"
	"time"

	"adserver/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStoreTypedReads(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewStore(client)
	ctx := context.Background()

	require.NoError(t, mr.Set("cfg:master", "10.0.0.1"))
	require.NoError(t, mr.Set("cfg:mainaction:rate", "7"))
	require.NoError(t, mr.Set("some:float", "0.25"))
	mr.HSet("cfg:exp:base", "version", "v1", "base", "0.3")

	s, err := store.GetString(ctx, "cfg:master")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", s)

	n, err := store.GetInt(ctx, "cfg:mainaction:rate")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	f, err := store.GetFloat(ctx, "some:float")
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)

	h, err := store.GetHash(ctx, "cfg:exp:base")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"version": "v1", "base": "0.3"}, h)
}

func TestStoreMissingKeyIsNotFound(t *testing.T) {
	_, client := newTestClient(t)
	store := NewStore(client)

	_, err := store.GetString(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetInt(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreWrongTypeIsAnError(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewStore(client)
	require.NoError(t, mr.Set("cfg:master", "not-a-number"))

	_, err := store.GetInt(context.Background(), "cfg:master")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreSetWithExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewStore(client)

	require.NoError(t, store.SetWithExpiry(context.Background(), "k", "v", 60))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(61 * time.Second)
	assert.False(t, mr.Exists("k"))
}

func TestExperimentConfigRoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewExperimentRepository(client)
	ctx := context.Background()

	cfg := domain.AdExperimentConfig{
		AdID:                  42,
		Version:               "v1",
		ControlGroupID:        "0",
		ExperimentGroupID:     "f",
		ExperimentActionID:    "act_b",
		MainActionID:          "act_a",
		ExperimentActionValue: 0.2,
		MainActionValue:       0.1,
	}
	require.NoError(t, repo.SaveExperimentConfig(ctx, "v1", 42, cfg))
	assert.True(t, mr.Exists("expversion:cfg:v1:42"))
	assert.Equal(t, time.Duration(ExperimentConfigTTL)*time.Second, mr.TTL("expversion:cfg:v1:42"))

	got, err := repo.GetExperimentConfig(ctx, "v1", 42)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestExperimentConfigAbsentOrMalformed(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewExperimentRepository(client)
	ctx := context.Background()

	_, err := repo.GetExperimentConfig(ctx, "v1", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mr.Set("expversion:cfg:v1:2", `{"main_action_value":0.3}`))
	got, err := repo.GetExperimentConfig(ctx, "v1", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.AdExperimentConfig{MainActionValue: 0.3}, got)

	require.NoError(t, mr.Set("expversion:cfg:v1:3", `{not json`))
	_, err = repo.GetExperimentConfig(ctx, "v1", 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestActionScores(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewExperimentRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.SetActionScores(ctx, "v1", 42, map[string]int64{"click": 3, "install": 10}))
	assert.Equal(t, "10", mr.HGet("expversion:score:v1:42", "install"))

	scores, err := repo.GetActionScores(ctx, "v1", 42)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"click": 3, "install": 10}, scores)

	mr.HSet("expversion:score:v1:42", "broken", "x")
	_, err = repo.GetActionScores(ctx, "v1", 42)
	assert.Error(t, err)
}

func TestTrackAdIDs(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewExperimentRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.TrackAdIDs(ctx, "v1", []int64{30, 10}))
	require.NoError(t, repo.TrackAdIDs(ctx, "v1", []int64{10, 20}))
	require.NoError(t, repo.TrackAdIDs(ctx, "v1", nil))

	members, err := mr.Members("expversion:adidlist:v1")
	require.NoError(t, err)
	assert.Len(t, members, 3)

	ids, err := repo.TrackedAdIDs(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, ids)

	ids, err = repo.TrackedAdIDs(ctx, "v2")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUpdateBaseVersion(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewExperimentRepository(client)
	repo.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.FixedZone("WIB", 7*3600)) }
	mr.HSet("cfg:exp:base", "base", "0.3")

	start, err := repo.UpdateBaseVersion(context.Background(), "v2")
	require.NoError(t, err)
	assert.Equal(t, 2025, start.Year())

	assert.Equal(t, "v2", mr.HGet("cfg:exp:base", "version"))
	assert.Equal(t, "2025-03-01 08:00:00+0700", mr.HGet("cfg:exp:base", "start_time"))
	assert.Equal(t, "0.3", mr.HGet("cfg:exp:base", "base"))
}

func TestSignalsRepository(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewSignalsRepository(client)
	repo.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, mr.Set("event:window:5:42", "100_80_40_4"))
	require.NoError(t, mr.Set("event:daily:2025-03-14:u1:42", "10_8_4_1"))
	require.NoError(t, mr.Set("event:tempclick:2025-03-14:u1", "2.5"))
	require.NoError(t, mr.Set("event:window:5:43", "garbage"))

	ev, err := repo.RealtimeWindowEvents(ctx, "5", 42)
	require.NoError(t, err)
	assert.Equal(t, domain.AdEvent{Requests: 100, Fills: 80, Shows: 40, Clicks: 4}, ev)

	ev, err = repo.UserDailyAdEvent(ctx, 42, "u1", "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, domain.AdEvent{Requests: 10, Fills: 8, Shows: 4, Clicks: 1}, ev)

	v, err := repo.UserDailyTemptClick(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	_, err = repo.RealtimeWindowEvents(ctx, "5", 43)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.UserDailyTemptClick(ctx, "u2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSignalsRepositoryWrites(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewSignalsRepository(client)
	repo.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, repo.SetWindowEvents(ctx, "a", 7, domain.AdEvent{Requests: 9, Fills: 6, Shows: 3, Clicks: 1}))
	require.NoError(t, repo.SetUserDailyAdEvent(ctx, 7, "u1", "2025-03-14", domain.AdEvent{Requests: 2, Fills: 1}))
	require.NoError(t, repo.SetUserDailyTemptClick(ctx, "u1", 0.75))

	got, err := mr.Get("event:window:a:7")
	require.NoError(t, err)
	assert.Equal(t, "9_6_3_1", got)
	assert.Equal(t, 48*time.Hour, mr.TTL("event:window:a:7"))

	ev, err := repo.UserDailyAdEvent(ctx, 7, "u1", "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, domain.AdEvent{Requests: 2, Fills: 1}, ev)

	v, err := repo.UserDailyTemptClick(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.75, v)
}
