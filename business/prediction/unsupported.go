package prediction

import (
	"context"
	"fmt"

	"adserver/domain"
)

// Unsupported is the Signals backend used when no event store is configured.
// Every call fails with domain.ErrUnsupported, which the pipeline absorbs
// into zero counters.
type Unsupported struct{}

func (Unsupported) RealtimeWindowEvents(context.Context, string, int64) (domain.AdEvent, error) {
	return domain.AdEvent{}, fmt.Errorf("realtime window events: %w", domain.ErrUnsupported)
}

func (Unsupported) UserDailyAdEvent(context.Context, int64, string, string) (domain.AdEvent, error) {
	return domain.AdEvent{}, fmt.Errorf("user daily ad events: %w", domain.ErrUnsupported)
}

func (Unsupported) UserDailyTemptClick(context.Context, string) (float64, error) {
	return 0, fmt.Errorf("user daily tempt click: %w", domain.ErrUnsupported)
}
