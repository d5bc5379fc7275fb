// Package tiercache keeps two expiring in-process caches in front of the
// experiment store: ad-id membership per config version, and the A/B
// assignment per (version, ad).
package tiercache

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"adserver/domain"
	"adserver/pkg/logger"
	"adserver/pkg/metrics"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL         = 24 * time.Hour
	DefaultIdleTTL     = 24 * time.Hour
	defaultCallTimeout = time.Second
)

// ExperimentStore is the backing store of per-ad assignments. Absent
// assignments are reported as domain.ErrNotFound.
type ExperimentStore interface {
	GetExperimentConfig(ctx context.Context, version string, adID int64) (domain.AdExperimentConfig, error)
	SaveExperimentConfig(ctx context.Context, version string, adID int64, cfg domain.AdExperimentConfig) error
}

// MembershipStore persists the ad ids seen under a version.
type MembershipStore interface {
	TrackAdIDs(ctx context.Context, version string, adIDs []int64) error
}

type Options struct {
	// TTL bounds an entry's lifetime from insertion.
	TTL time.Duration
	// IdleTTL evicts entries that have not been read for this long.
	IdleTTL time.Duration
	// CallTimeout bounds each backing-store call.
	CallTimeout time.Duration
}

type adKey struct {
	Version string
	AdID    int64
}

func (k adKey) String() string {
	return k.Version + ":" + strconv.FormatInt(k.AdID, 10)
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

type Cache struct {
	store   ExperimentStore
	members MembershipStore

	membership  *ttlcache.Cache[adKey, entry[struct{}]]
	experiments *ttlcache.Cache[adKey, entry[domain.AdExperimentConfig]]
	loads       singleflight.Group

	ttl         time.Duration
	callTimeout time.Duration
	now         func() time.Time
}

// New builds both caches and starts their expiry goroutines. members may be
// nil, in which case Flush is a no-op.
func New(store ExperimentStore, members MembershipStore, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}

	c := &Cache{
		store:   store,
		members: members,
		membership: ttlcache.New(
			ttlcache.WithTTL[adKey, entry[struct{}]](opts.IdleTTL),
		),
		experiments: ttlcache.New(
			ttlcache.WithTTL[adKey, entry[domain.AdExperimentConfig]](opts.IdleTTL),
		),
		ttl:         opts.TTL,
		callTimeout: opts.CallTimeout,
		now:         time.Now,
	}

	go c.membership.Start()
	go c.experiments.Start()

	return c
}

// Close stops the expiry goroutines.
func (c *Cache) Close() {
	c.membership.Stop()
	c.experiments.Stop()
}

// fresh enforces the absolute lifetime; ttlcache itself enforces the idle one.
func (c *Cache) fresh(storedAt time.Time) bool {
	return c.now().Sub(storedAt) < c.ttl
}

// Remember records adIDs as members of version.
func (c *Cache) Remember(version string, adIDs []int64) {
	now := c.now()
	for _, id := range adIDs {
		c.membership.Set(adKey{Version: version, AdID: id}, entry[struct{}]{storedAt: now}, ttlcache.DefaultTTL)
	}
}

// ListKnown returns the cached ad ids of version in ascending order.
func (c *Cache) ListKnown(version string) []int64 {
	var ids []int64
	c.membership.Range(func(item *ttlcache.Item[adKey, entry[struct{}]]) bool {
		k := item.Key()
		if k.Version == version && !item.IsExpired() && c.fresh(item.Value().storedAt) {
			ids = append(ids, k.AdID)
		}
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Flush persists the cached members of version. Errors are returned to the
// caller, which is the maintenance job and not the request path.
func (c *Cache) Flush(ctx context.Context, version string) error {
	if c.members == nil || version == "" {
		return nil
	}
	ids := c.ListKnown(version)
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.members.TrackAdIDs(ctx, version, ids)
}

// GetExperimentConfig returns the assignment of (version, adID), reading
// through to the store on a miss. The boolean reports whether the store holds
// a record; a loaded record is returned even when it is not cacheable.
// Concurrent misses for one key share a single store read.
func (c *Cache) GetExperimentConfig(ctx context.Context, version string, adID int64) (domain.AdExperimentConfig, bool) {
	key := adKey{Version: version, AdID: adID}

	if item := c.experiments.Get(key); item != nil {
		if c.fresh(item.Value().storedAt) {
			metrics.CacheLookups.WithLabelValues("experiment", "hit").Inc()
			return item.Value().value, true
		}
		c.experiments.Delete(key)
	}

	v, _, _ := c.loads.Do(key.String(), func() (any, error) {
		cfg, found := c.load(ctx, key)
		// only records naming their ad and version are cached
		if found && cfg.HasIdentity() {
			c.experiments.Set(key, entry[domain.AdExperimentConfig]{value: cfg, storedAt: c.now()}, ttlcache.DefaultTTL)
		}
		return loadResult{cfg: cfg, found: found}, nil
	})
	res := v.(loadResult)

	if res.found {
		metrics.CacheLookups.WithLabelValues("experiment", "load").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues("experiment", "miss").Inc()
	}
	return res.cfg, res.found
}

type loadResult struct {
	cfg   domain.AdExperimentConfig
	found bool
}

func (c *Cache) load(ctx context.Context, k adKey) (domain.AdExperimentConfig, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	cfg, err := c.store.GetExperimentConfig(ctx, k.Version, k.AdID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error("failed to load experiment config", "version", k.Version, "ad_id", k.AdID, "error", err)
		}
		return domain.AdExperimentConfig{}, false
	}
	return cfg, true
}

// PutExperimentConfig updates the cache, then writes through to the store.
// Store failures are logged and not returned.
func (c *Cache) PutExperimentConfig(ctx context.Context, version string, adID int64, cfg domain.AdExperimentConfig) {
	key := adKey{Version: version, AdID: adID}
	c.experiments.Set(key, entry[domain.AdExperimentConfig]{value: cfg, storedAt: c.now()}, ttlcache.DefaultTTL)

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	if err := c.store.SaveExperimentConfig(ctx, version, adID, cfg); err != nil {
		logger.Error("failed to persist experiment config", "version", version, "ad_id", adID, "error", err)
	}
}
