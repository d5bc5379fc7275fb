package prediction

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"adserver/business/dynconfig"
	"adserver/business/signal"
	"adserver/domain"
	"adserver/pkg/logger"
	"adserver/pkg/metrics"
	"adserver/pkg/trace"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultSignalTimeout = 200 * time.Millisecond
	DefaultConcurrency   = 8

	dateLayout = "2006-01-02"

	// adjustBand is the share of the target CTR the window CTR may drift
	// before the score is boosted or damped.
	adjustBand = 0.3
)

const (
	AdjustNone  = "none"
	AdjustBoost = "boost"
	AdjustDamp  = "damp"
)

// ---- Collaborators ----

// Signals supplies pre-aggregated event counters.
type Signals interface {
	RealtimeWindowEvents(ctx context.Context, segment string, adID int64) (domain.AdEvent, error)
	UserDailyAdEvent(ctx context.Context, adID int64, userID, date string) (domain.AdEvent, error)
	UserDailyTemptClick(ctx context.Context, userID string) (float64, error)
}

// ConfigReader is the read side of the dynamic config snapshot.
type ConfigReader interface {
	GetHash(key string) map[string]string
}

type ExperimentCache interface {
	Remember(version string, adIDs []int64)
	GetExperimentConfig(ctx context.Context, version string, adID int64) (domain.AdExperimentConfig, bool)
}

type Options struct {
	// SignalTimeout bounds each Signals call.
	SignalTimeout time.Duration
	// Concurrency caps the ads scored in parallel for one request.
	Concurrency int
}

// ---- Service ----

type PredictionService struct {
	config  ConfigReader
	cache   ExperimentCache
	signals Signals

	signalTimeout time.Duration
	concurrency   int

	now  func() time.Time
	draw func() float64
}

func NewPredictionService(config ConfigReader, cache ExperimentCache, signals Signals, opts Options) *PredictionService {
	if opts.SignalTimeout <= 0 {
		opts.SignalTimeout = DefaultSignalTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if signals == nil {
		signals = Unsupported{}
	}
	return &PredictionService{
		config:        config,
		cache:         cache,
		signals:       signals,
		signalTimeout: opts.SignalTimeout,
		concurrency:   opts.Concurrency,
		now:           time.Now,
		draw:          rand.Float64,
	}
}

// Predict returns one show (1) or skip (0) decision per requested ad, in
// request order. A request that fails validation gets a non-zero code and no
// items; only a cancelled context yields an error.
func (s *PredictionService) Predict(ctx context.Context, req domain.PredictRequest) (domain.PredictResponse, error) {
	if err := ctx.Err(); err != nil {
		return domain.PredictResponse{}, fmt.Errorf("context error: %w", err)
	}
	if msg := Validate(req); msg != "" {
		return domain.PredictResponse{Code: CodeInvalidRequest, Msg: msg, Items: []domain.PredictionItem{}}, nil
	}

	rows := s.evaluate(ctx, req)

	items := make([]domain.PredictionItem, len(rows))
	for i, row := range rows {
		items[i] = domain.PredictionItem{AdID: row.AdID, Value: row.Decision}
		metrics.DecisionsTotal.WithLabelValues(strconv.Itoa(int(row.Decision))).Inc()
	}
	return domain.PredictResponse{Code: 0, Msg: "", Items: items}, nil
}

// Explain runs the same pipeline as Predict and returns every intermediate
// value per ad.
func (s *PredictionService) Explain(ctx context.Context, req domain.PredictRequest) (domain.ExplainResponse, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExplainResponse{}, fmt.Errorf("context error: %w", err)
	}
	if msg := Validate(req); msg != "" {
		return domain.ExplainResponse{Code: CodeInvalidRequest, Msg: msg, Items: []domain.ScoreBreakdown{}}, nil
	}
	return domain.ExplainResponse{Code: 0, Msg: "", Items: s.evaluate(ctx, req)}, nil
}

// request is the per-request state shared by every ad.
type request struct {
	userID string
	group  string
	date   string
	base   domain.ExperimentBaseConfig
	ab     domain.ABParams
	tables signal.Tables
	rateA  float64
}

func (s *PredictionService) evaluate(ctx context.Context, req domain.PredictRequest) []domain.ScoreBreakdown {
	now := s.now()
	r := &request{
		userID: req.User,
		group:  UserGroup(req.User),
		date:   now.Format(dateLayout),
		base:   ParseBaseConfig(s.config.GetHash(dynconfig.KeyExpBase), now),
		ab:     ParseABParams(s.config.GetHash(dynconfig.KeyExpAB)),
		tables: signal.Load(s.config),
	}

	s.cache.Remember(r.base.Version, req.AdIDs)

	r.rateA = signal.FindTargetVal(r.tables.TemptClick, s.temptClick(ctx, req.User))

	tid := trace.FromContext(ctx)
	logger.Debug("predict_request",
		"trace_id", tid,
		"user_id", req.User,
		"user_group", r.group,
		"version", r.base.Version,
		"service_type", req.ServiceType,
		"model", req.Model,
		"ads", len(req.AdIDs),
	)

	out := make([]domain.ScoreBreakdown, len(req.AdIDs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, adID := range req.AdIDs {
		g.Go(func() error {
			out[i] = s.score(ctx, r, adID)
			return nil
		})
	}
	_ = g.Wait()

	if req.IsDebug {
		for _, b := range out {
			logger.Info("predict_debug",
				"trace_id", tid,
				"ad_id", b.AdID,
				"rate_a", b.RateA,
				"rate_b", b.RateB,
				"rate_c", b.RateC,
				"rate_d", b.RateD,
				"window_ctr", b.WindowCTR,
				"target_ctr", b.TargetCTR,
				"adjustment", b.Adjustment,
				"total", b.Total,
				"base", b.BaseValue,
				"decision", b.Decision,
			)
		}
	}
	return out
}

func (s *PredictionService) score(ctx context.Context, r *request, adID int64) domain.ScoreBreakdown {
	window := s.windowEvents(ctx, r.group, adID)
	daily := s.dailyEvents(ctx, adID, r.userID, r.date)

	b := domain.ScoreBreakdown{
		AdID:      adID,
		UserGroup: r.group,
		Version:   r.base.Version,
		FillRate:  daily.FillRate(r.ab),
		ShowRate:  daily.ShowRate(r.ab),
		ClickRate: daily.ClickRate(r.ab),
		WindowCTR: window.RawClickRate(),
		RateA:     r.rateA,
		BaseValue: r.base.BaseValue,
	}
	b.RateB = signal.FindTargetVal(r.tables.FillRate, b.FillRate)
	b.RateC = signal.FindTargetVal(r.tables.ShowRate, b.ShowRate)
	b.RateD = signal.FindTargetVal(r.tables.ClickRate, b.ClickRate)

	// An ad without an assignment scores against the zero config.
	cfg, _ := s.cache.GetExperimentConfig(ctx, r.base.Version, adID)
	b.InExpGroup = cfg.InExperimentGroup(r.group)
	b.TargetCTR = cfg.TargetCTR(r.group)

	b.RawTotal = b.RateA * b.RateB * b.RateC * b.RateD
	b.Total, b.Adjustment = adjust(b.RawTotal, b.WindowCTR, b.TargetCTR)
	b.Decision = decide(b.Total, b.BaseValue, s.draw)
	return b
}

// adjust doubles total when the window CTR trails the target by more than
// the band and halves it when it leads by more than the band.
func adjust(total, windowCTR, targetCTR float64) (float64, string) {
	if windowCTR < targetCTR {
		if windowCTR+targetCTR*adjustBand < targetCTR {
			return total * 2, AdjustBoost
		}
	} else if targetCTR+targetCTR*adjustBand < windowCTR {
		return total * 0.5, AdjustDamp
	}
	return total, AdjustNone
}

// decide draws only when total reaches base.
func decide(total, base float64, draw func() float64) uint8 {
	if total < base {
		return 0
	}
	if total >= draw() {
		return 1
	}
	return 0
}

// ---- Signals with fallback ----

func (s *PredictionService) temptClick(ctx context.Context, userID string) float64 {
	ctx, cancel := context.WithTimeout(ctx, s.signalTimeout)
	defer cancel()

	v, err := s.signals.UserDailyTemptClick(ctx, userID)
	if err != nil {
		signalFailed(ctx, "tempt_click", err, "user_id", userID)
		return 0
	}
	return v
}

func (s *PredictionService) windowEvents(ctx context.Context, segment string, adID int64) domain.AdEvent {
	ctx, cancel := context.WithTimeout(ctx, s.signalTimeout)
	defer cancel()

	ev, err := s.signals.RealtimeWindowEvents(ctx, segment, adID)
	if err != nil {
		signalFailed(ctx, "window_events", err, "segment", segment, "ad_id", adID)
		return domain.AdEvent{}
	}
	return ev
}

func (s *PredictionService) dailyEvents(ctx context.Context, adID int64, userID, date string) domain.AdEvent {
	ctx, cancel := context.WithTimeout(ctx, s.signalTimeout)
	defer cancel()

	ev, err := s.signals.UserDailyAdEvent(ctx, adID, userID, date)
	if err != nil {
		signalFailed(ctx, "daily_events", err, "ad_id", adID, "user_id", userID, "date", date)
		return domain.AdEvent{}
	}
	return ev
}

// signalFailed logs an absorbed Signals error. Missing counters are normal
// and an unconfigured backend fails every call, so both log at debug.
func signalFailed(ctx context.Context, name string, err error, args ...any) {
	args = append(args, "trace_id", trace.FromContext(ctx), "error", err)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("signal missing: "+name, args...)
	case errors.Is(err, domain.ErrUnsupported):
		logger.Debug("signal unsupported: "+name, args...)
	default:
		metrics.SignalFailures.WithLabelValues(name).Inc()
		logger.Warn("signal failed: "+name, args...)
	}
}
