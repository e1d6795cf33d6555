// Package watcher runs the poll loop: fetch, validate, format, notify,
// advance the watermark, sleep.
package watcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"statusbot/internal/gate"
	"statusbot/internal/metrics"
	"statusbot/internal/review"
	logx "statusbot/pkg/logx"
)

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithWait overrides the sleep between cycles. wait must return ctx.Err()
// once ctx is done.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.wait = wait }
}

// WithCycleHook registers fn to run on the loop goroutine after every cycle.
func WithCycleHook(fn func(Result)) Option {
	return func(s *Service) { s.onCycle = fn }
}

// Service owns the watermark and the dedup gate. Both are touched only by the
// goroutine running Run/RunCycle.
type Service struct {
	fetch  Fetcher
	notify Notifier
	log    logx.Logger

	gate      *gate.Gate
	watermark review.Watermark

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error

	onCycle func(Result)

	schedMu sync.RWMutex
	sched   Schedule

	cycles atomic.Uint64
	snapMu sync.RWMutex
	snap   Snapshot
}

func New(fetch Fetcher, notify Notifier, sched Schedule, start review.Watermark, log logx.Logger, opts ...Option) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		fetch:     fetch,
		notify:    notify,
		log:       log,
		gate:      gate.New(),
		watermark: start,
		now:       time.Now,
		wait:      sleepCtx,
		sched:     sched,
	}
	for _, o := range opts {
		o(s)
	}
	s.snap = Snapshot{Watermark: int64(start), Schedule: scheduleName(sched)}
	metrics.Watermark.Set(float64(start))
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetSchedule swaps the schedule used for the next sleep.
func (s *Service) SetSchedule(sched Schedule) {
	s.schedMu.Lock()
	s.sched = sched
	s.schedMu.Unlock()

	s.snapMu.Lock()
	s.snap.Schedule = scheduleName(sched)
	s.snapMu.Unlock()
}

func (s *Service) schedule() Schedule {
	s.schedMu.RLock()
	defer s.schedMu.RUnlock()
	return s.sched
}

func scheduleName(sched Schedule) string {
	if st, ok := sched.(fmt.Stringer); ok {
		return st.String()
	}
	return ""
}

// Watermark returns the current watermark. Only call from the loop goroutine
// or after Run returned; use Snapshot elsewhere.
func (s *Service) Watermark() review.Watermark { return s.watermark }

func (s *Service) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	cp := s.snap
	cp.OpenIncidents = append([]string(nil), s.snap.OpenIncidents...)
	return cp
}

// Run loops until ctx is done. Every outcome is followed by one sleep until the
// schedule's next activation.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("poll loop started",
		logx.Int64("watermark", int64(s.watermark)),
		logx.String("schedule", scheduleName(s.schedule())),
	)
	for {
		res := s.RunCycle(ctx)
		if ctx.Err() != nil {
			s.log.Info("poll loop stopped", logx.Int64("watermark", int64(s.watermark)))
			return nil
		}

		now := s.now()
		delay := max(s.nextAfter(now).Sub(now), 0)
		s.log.Debug("waiting for next cycle",
			logx.String("outcome", string(res.Outcome)),
			logx.Duration("delay", delay),
		)
		if err := s.wait(ctx, delay); err != nil {
			s.log.Info("poll loop stopped", logx.Int64("watermark", int64(s.watermark)))
			return nil
		}
	}
}

func (s *Service) nextAfter(now time.Time) time.Time {
	sched := s.schedule()
	if sched == nil {
		return now
	}
	return sched.Next(now)
}

// RunCycle performs one poll cycle and never panics on bad input: every failure
// is classified, routed through the gate and reported in the Result.
func (s *Service) RunCycle(ctx context.Context) Result {
	res := Result{ID: uuid.NewString()}
	log := s.log.With(logx.String("cycle", res.ID), logx.Int64("watermark", int64(s.watermark)))

	res = s.cycle(ctx, log, res)
	res.Watermark = s.watermark

	s.cycles.Add(1)
	metrics.CyclesTotal.WithLabelValues(string(res.Outcome)).Inc()
	s.record(res)
	if s.onCycle != nil {
		s.onCycle(res)
	}
	return res
}

func (s *Service) cycle(ctx context.Context, log logx.Logger, res Result) Result {
	start := time.Now()
	raw, err := s.fetch.Fetch(ctx, s.watermark)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return s.fail(ctx, log, res, OutcomeUpstreamError, err)
	}

	resp, err := review.Validate(raw)
	if err != nil {
		return s.fail(ctx, log, res, OutcomeInvalidResponse, err)
	}

	if len(resp.Items) == 0 {
		log.Info("no status change", logx.Int64("current_date", int64(resp.Watermark)))
		s.advance(log, resp.Watermark)
		s.gate.ClearAll()
		res.Outcome = OutcomeNoChange
		return res
	}
	if len(resp.Items) > 1 {
		log.Debug("several updates in window; reporting the first", logx.Int("items", len(resp.Items)))
	}

	item, err := review.DecodeItem(resp.Items[0])
	if err != nil {
		return s.fail(ctx, log, res, OutcomeInvalidItem, err)
	}
	text, err := review.ParseStatus(item)
	if err != nil {
		return s.fail(ctx, log.With(logx.String("item_id", item.ID)), res, OutcomeInvalidItem, err)
	}

	log = log.With(logx.String("item_id", item.ID), logx.String("status", string(item.Status)))
	// Status changes are never deduplicated.
	res.Outcome = OutcomeStatusSent
	if err := s.notify.Notify(ctx, text); err != nil {
		res.Err = review.Delivery(err)
		res.Outcome = OutcomeStatusLost
		metrics.NotificationsTotal.WithLabelValues("status", "failed").Inc()
		log.Error("status notification delivery failed", logx.Err(err), logx.String("text", text))
	} else {
		res.Notified = true
		metrics.NotificationsTotal.WithLabelValues("status", "sent").Inc()
		log.Info("status notification sent", logx.String("name", item.Name))
	}

	s.advance(log, resp.Watermark)
	s.gate.ClearAll()
	return res
}

// fail routes err through the gate. The watermark is left untouched so the
// same window is requested again.
func (s *Service) fail(ctx context.Context, log logx.Logger, res Result, outcome Outcome, err error) Result {
	res.Err = err
	if ctx.Err() != nil {
		res.Outcome = OutcomeCanceled
		return res
	}
	res.Outcome = outcome

	cat := gate.CategoryFor(err)
	log = log.With(logx.String("category", string(cat)), logx.String("kind", string(review.KindOf(err))))

	sent, nerr := s.gate.Notify(ctx, cat, func(c context.Context) error {
		return s.notify.Notify(c, errorPrefix+err.Error())
	})
	switch {
	case nerr != nil:
		metrics.NotificationsTotal.WithLabelValues("error", "failed").Inc()
		log.Error("error notification delivery failed", logx.Err(nerr), logx.String("cause", err.Error()))
	case sent:
		res.Notified = true
		metrics.NotificationsTotal.WithLabelValues("error", "sent").Inc()
		log.Warn("cycle failed; operator notified", logx.Err(err))
	default:
		metrics.SuppressedTotal.WithLabelValues(string(cat)).Inc()
		log.Debug("cycle failed; incident already reported", logx.Err(err))
	}
	return res
}

func (s *Service) advance(log logx.Logger, next review.Watermark) {
	if next < s.watermark {
		log.Warn("upstream watermark went backwards; keeping current", logx.Int64("current_date", int64(next)))
		return
	}
	s.watermark = next
	metrics.Watermark.Set(float64(next))
}

func (s *Service) record(res Result) {
	open := s.gate.Open()
	names := make([]string, 0, len(open))
	for _, c := range open {
		names = append(names, string(c))
	}
	sort.Strings(names)

	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	s.snap.Watermark = int64(res.Watermark)
	s.snap.Cycles = s.cycles.Load()
	s.snap.LastOutcome = string(res.Outcome)
	s.snap.LastCycleAt = s.now()
	s.snap.OpenIncidents = names
	s.snap.LastError = ""
	if res.Err != nil {
		s.snap.LastError = res.Err.Error()
	}
}
