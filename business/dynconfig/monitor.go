package dynconfig

import (
	"context"
	"fmt"
	"sync"
	"time"

	"adserver/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Monitor drives Store.Refresh on a fixed interval from its own goroutine,
// together with any other periodic maintenance jobs registered on it.
type Monitor struct {
	store    *Store
	interval time.Duration
	cron     *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

func NewMonitor(store *Store, interval time.Duration) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		store:    store,
		interval: interval,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{}),
			cron.SkipIfStillRunning(cronLogger{}),
		)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob schedules fn every interval. The scheduler ticks in whole seconds,
// so every must be a positive multiple of one second. Jobs receive a context
// that is cancelled when the monitor stops.
func (m *Monitor) AddJob(name string, every time.Duration, fn func(ctx context.Context)) error {
	if err := ValidateInterval(every); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	_, err := m.cron.AddFunc(fmt.Sprintf("@every %s", every), func() {
		start := time.Now()
		fn(m.ctx)
		logger.Debug("dynconfig job finished", "job", name, "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	return nil
}

// ValidateInterval rejects intervals the scheduler would silently round.
func ValidateInterval(every time.Duration) error {
	if every < time.Second || every%time.Second != 0 {
		return fmt.Errorf("interval %s must be a whole number of seconds, at least 1s", every)
	}
	return nil
}

// Start runs one refresh synchronously so the first requests see remote
// values when the store is reachable, then starts the schedule.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	if err := ValidateInterval(m.interval); err != nil {
		return fmt.Errorf("dynconfig refresh: %w", err)
	}

	logger.Info("starting dynconfig monitor", "interval", m.interval, "keys", len(m.store.Keys()))
	if err := m.store.Refresh(m.ctx); err != nil {
		logger.Warn("initial dynconfig refresh incomplete", "error", err)
	}

	if err := m.AddJob("dynconfig-refresh", m.interval, m.refresh); err != nil {
		return err
	}

	m.cron.Start()
	m.started = true
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancel()
	if !m.started {
		return
	}
	<-m.cron.Stop().Done()
	m.started = false
	logger.Info("dynconfig monitor stopped")
}

func (m *Monitor) refresh(ctx context.Context) {
	if err := m.store.Refresh(ctx); err != nil {
		logger.Warn("dynconfig refresh incomplete", "error", err)
	}
}

// cronLogger routes cron's internal logging to the process logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
