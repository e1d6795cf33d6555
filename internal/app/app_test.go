package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"statusbot/internal/config"
	"statusbot/internal/observability/ops"
	"statusbot/internal/poller"
	"statusbot/internal/review"
	"statusbot/internal/runtime/supervisor"
	"statusbot/internal/watcher"
	logx "statusbot/pkg/logx"
)

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context, review.Watermark) (any, error) {
	return map[string]any{"homeworks": []any{}, "current_date": int64(1)}, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) error { return nil }

func TestMapPollerConfigEndpointPrecedence(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	sec := &config.Secrets{PracticumToken: "tok"}

	pc := mapPollerConfig(sec, cfg)
	require.Equal(t, poller.DefaultEndpoint, pc.Endpoint)
	require.Equal(t, "tok", pc.Token)
	require.Equal(t, config.DefaultPollTimeout, pc.Timeout)

	cfg.Poll.Endpoint = "http://file.example/api"
	require.Equal(t, "http://file.example/api", mapPollerConfig(sec, cfg).Endpoint)

	sec.Endpoint = "http://env.example/api"
	require.Equal(t, "http://env.example/api", mapPollerConfig(sec, cfg).Endpoint)
}

func TestMapOpsAndLogConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Ops.Enabled = true
	require.Equal(t, ops.Config{Enabled: true, Addr: config.DefaultOpsAddr}, mapOpsConfig(cfg))

	cfg.Logging.Telegram = config.LoggingTelegram{Enabled: true, ThreadID: 3, MinLevel: "ERROR", RatePerSec: 2}
	lc := mapLogConfig(cfg)
	require.Equal(t, "INFO", lc.Level)
	require.True(t, lc.Console)
	require.Equal(t, logx.TelegramConfig{Enabled: true, ThreadID: 3, MinLevel: "ERROR", RatePerSec: 2}, lc.Telegram)
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	sched, err := config.ParseSchedule("")
	require.NoError(t, err)
	logs, log := logx.New(logx.Config{Level: "ERROR"}, nil)
	t.Cleanup(func() { _ = logs.Close() })

	a := &App{
		log:     log,
		logs:    logs,
		watcher: watcher.New(nopFetcher{}, nopNotifier{}, sched, 1000, log),
	}
	a.ops = ops.New(prometheus.NewRegistry(), a.health, log)
	t.Cleanup(func() { a.ops.Stop(context.Background()) })
	return a
}

func TestApplyConfigSwapsScheduleAndOps(t *testing.T) {
	a := newTestApp(t)
	prev := config.Default()
	next := config.Default()
	next.Poll.Schedule = "*/5 * * * *"
	next.Ops = config.OpsConfig{Enabled: true, Addr: "127.0.0.1:0"}

	a.applyConfig(context.Background(), prev, next)

	require.Equal(t, "cron:*/5 * * * *", a.watcher.Snapshot().Schedule)
	require.NotEmpty(t, a.ops.Addr())

	a.applyConfig(context.Background(), next, prev)
	require.Equal(t, "interval:10m0s", a.watcher.Snapshot().Schedule)
	require.Empty(t, a.ops.Addr())
}

func TestApplyConfigKeepsScheduleOnInvalidValue(t *testing.T) {
	a := newTestApp(t)
	prev := config.Default()
	next := config.Default()
	next.Poll.Schedule = "not a schedule"

	a.applyConfig(context.Background(), prev, next)
	require.Equal(t, "interval:10m0s", a.watcher.Snapshot().Schedule)
}

func TestHealthReflectsSupervisorFailure(t *testing.T) {
	a := newTestApp(t)
	a.sup = supervisor.New(context.Background(), supervisor.WithCancelOnError(true))

	view, ok := a.health()
	require.True(t, ok)
	require.Equal(t, "ok", view.(healthView).Status)
	require.Equal(t, int64(1000), view.(healthView).Watcher.Watermark)

	a.sup.Go("boom", func(context.Context) error { return context.DeadlineExceeded })
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Error(t, a.sup.Wait(ctx))

	view, ok = a.health()
	require.False(t, ok)
	require.Equal(t, "failed", view.(healthView).Status)
}

func TestCycleStatusLine(t *testing.T) {
	t.Parallel()
	got := cycleStatus(watcher.Result{Outcome: watcher.OutcomeStatusSent, Watermark: 1700000000})
	require.Equal(t, "last cycle: status_sent, watermark 1700000000", got)
}
