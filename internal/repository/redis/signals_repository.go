package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"adserver/domain"

	"github.com/redis/go-redis/v9"
)

const (
	dateLayout = "2006-01-02"

	// signalTTL outlives the daily keys by one day.
	signalTTL = 2 * 24 * 3600 // seconds
)

// SignalsRepository reads pre-aggregated event counters written by the
// event pipeline. Counters are stored as "requests_fills_shows_clicks".
type SignalsRepository struct {
	store *Store
	now   func() time.Time
}

func NewSignalsRepository(client redis.UniversalClient) *SignalsRepository {
	return &SignalsRepository{
		store: NewStore(client),
		now:   time.Now,
	}
}

func (r *SignalsRepository) RealtimeWindowEvents(ctx context.Context, segment string, adID int64) (domain.AdEvent, error) {
	return r.event(ctx, windowEventKey(segment, adID))
}

func (r *SignalsRepository) UserDailyAdEvent(ctx context.Context, adID int64, userID, date string) (domain.AdEvent, error) {
	return r.event(ctx, dailyEventKey(date, userID, adID))
}

// UserDailyTemptClick returns today's cumulative tempted-click score of a user.
func (r *SignalsRepository) UserDailyTemptClick(ctx context.Context, userID string) (float64, error) {
	return r.store.GetFloat(ctx, temptClickKey(r.now().Format(dateLayout), userID))
}

// SetWindowEvents overwrites the realtime window counters of an ad.
func (r *SignalsRepository) SetWindowEvents(ctx context.Context, segment string, adID int64, ev domain.AdEvent) error {
	return r.store.SetWithExpiry(ctx, windowEventKey(segment, adID), FormatAdEvent(ev), signalTTL)
}

func (r *SignalsRepository) SetUserDailyAdEvent(ctx context.Context, adID int64, userID, date string, ev domain.AdEvent) error {
	return r.store.SetWithExpiry(ctx, dailyEventKey(date, userID, adID), FormatAdEvent(ev), signalTTL)
}

func (r *SignalsRepository) SetUserDailyTemptClick(ctx context.Context, userID string, v float64) error {
	key := temptClickKey(r.now().Format(dateLayout), userID)
	return r.store.SetWithExpiry(ctx, key, strconv.FormatFloat(v, 'f', -1, 64), signalTTL)
}

func (r *SignalsRepository) event(ctx context.Context, key string) (domain.AdEvent, error) {
	raw, err := r.store.GetString(ctx, key)
	if err != nil {
		return domain.AdEvent{}, err
	}
	ev, ok := ParseAdEvent(raw)
	if !ok {
		return domain.AdEvent{}, fmt.Errorf("malformed event counters at %q: %w", key, domain.ErrNotFound)
	}
	return ev, nil
}

// ParseAdEvent decodes "requests_fills_shows_clicks". Fewer than four
// fields is malformed; unparsable counters read as zero.
func ParseAdEvent(s string) (domain.AdEvent, bool) {
	fields := strings.Split(s, "_")
	if len(fields) < 4 {
		return domain.AdEvent{}, false
	}
	return domain.AdEvent{
		Requests: parseCounter(fields[0]),
		Fills:    parseCounter(fields[1]),
		Shows:    parseCounter(fields[2]),
		Clicks:   parseCounter(fields[3]),
	}, true
}

func parseCounter(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatAdEvent is the inverse of ParseAdEvent.
func FormatAdEvent(ev domain.AdEvent) string {
	return fmt.Sprintf("%d_%d_%d_%d", ev.Requests, ev.Fills, ev.Shows, ev.Clicks)
}
