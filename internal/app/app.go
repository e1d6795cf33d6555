package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"statusbot/internal/config"
	"statusbot/internal/metrics"
	"statusbot/internal/observability/ops"
	"statusbot/internal/poller"
	"statusbot/internal/review"
	"statusbot/internal/runtime/supervisor"
	kit "statusbot/internal/transport"
	"statusbot/internal/transport/telegram"
	"statusbot/internal/watcher"
	logx "statusbot/pkg/logx"
	"statusbot/pkg/systemd"
)

type App struct {
	secrets *config.Secrets
	cfgm    *config.Manager
	sup     *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	tg      *telegram.Adapter
	watcher *watcher.Service
	ops     *ops.Server
}

// New wires every component from secrets and the loaded config. A Telegram
// client that cannot be built is fatal.
func New(secrets *config.Secrets, cfgm *config.Manager) (*App, error) {
	cfg := cfgm.Get()
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	chatID, err := secrets.ChatID()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	tg, err := telegram.New(telegram.Config{Token: secrets.TelegramToken}, bootLog)
	if err != nil {
		return nil, fmt.Errorf("telegram client: %w", err)
	}

	// Start with the Telegram sink disabled so Apply does not warn before the
	// target is known.
	logCfg := mapLogConfig(cfg)
	tgEnabled := logCfg.Telegram.Enabled
	logCfg.Telegram.Enabled = false
	logSvc, log := logx.New(logCfg, tg)
	if id, _ := cfg.GroupLogID(); id != 0 {
		logSvc.SetTelegramTarget(id, cfg.Logging.Telegram.ThreadID)
	}
	logCfg.Telegram.Enabled = tgEnabled
	logSvc.Apply(logCfg)

	pc, err := poller.New(mapPollerConfig(secrets, cfg), log.With(logx.String("comp", "poller")))
	if err != nil {
		return nil, err
	}

	sched, err := config.ParseSchedule(cfg.Poll.Schedule)
	if err != nil {
		return nil, err
	}
	notifier := telegram.ChatNotifier{Sender: tg, Target: kit.ChatTarget{ChatID: chatID}}
	w := watcher.New(pc, notifier, sched, review.Now(), log.With(logx.String("comp", "watcher")),
		watcher.WithCycleHook(reportCycle))

	a := &App{
		secrets: secrets,
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		tg:      tg,
		watcher: w,
	}
	a.ops = ops.New(metrics.Registry, a.health, log.With(logx.String("comp", "ops")))
	return a, nil
}

// reportCycle publishes the last outcome as the systemd STATUS line.
func reportCycle(res watcher.Result) {
	_, _ = systemd.Status(cycleStatus(res))
}

func cycleStatus(res watcher.Result) string {
	return fmt.Sprintf("last cycle: %s, watermark %d", res.Outcome, int64(res.Watermark))
}

type healthView struct {
	Status     string              `json:"status"`
	Watcher    watcher.Snapshot    `json:"watcher"`
	Supervisor supervisor.Counters `json:"supervisor"`
}

func (a *App) health() (any, bool) {
	v := healthView{Status: "ok", Watcher: a.watcher.Snapshot(), Supervisor: a.sup.Counters()}
	healthy := a.sup == nil || a.sup.Err() == nil
	if !healthy {
		v.Status = "failed"
	}
	return v, healthy
}

// Done is closed when the supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	cfg := a.cfgm.Get()
	if err := a.ops.Apply(a.sup.Context(), mapOpsConfig(cfg)); err != nil {
		a.log.Warn("ops server not started", logx.Err(err))
	}

	a.sup.GoRestart("watcher", a.watcher.Run, supervisor.WithRestartBackoff(time.Second, time.Minute))

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	a.sup.Go0("systemd.watchdog", systemd.RunWatchdog)

	if ok, err := systemd.Ready(); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}
	a.log.Info("app started",
		logx.String("config", a.cfgm.Path()),
		logx.Any("secrets", a.secrets.Redacted()),
	)
	return nil
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			// Keep only the newest config from a burst.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					break drain
				}
			}
			a.applyConfig(ctx, last, next)
			last = next
		}
	}
}

func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	ch := config.Summarize(prev, next)
	if ch.Empty() {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if len(ch.RestartRequired) > 0 {
		a.log.Warn("config change requires restart", logx.String("fields", strings.Join(ch.RestartRequired, ",")))
	}

	if id, err := next.GroupLogID(); err == nil {
		a.logs.SetTelegramTarget(id, next.Logging.Telegram.ThreadID)
	}
	a.logs.Apply(mapLogConfig(next))

	if sched, err := config.ParseSchedule(next.Poll.Schedule); err != nil {
		a.log.Warn("invalid poll.schedule; keeping previous", logx.Err(err))
	} else {
		a.watcher.SetSchedule(sched)
	}

	if err := a.ops.Apply(ctx, mapOpsConfig(next)); err != nil {
		a.log.Warn("ops reconfigure failed", logx.Err(err))
	}

	a.log.Info("config reloaded", logx.String("changed", strings.Join(ch.Sections, ",")))
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if _, err := systemd.Stopping(); err != nil {
		a.log.Debug("sd_notify stopping failed", logx.Err(err))
	}
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		start := time.Now()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			return
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("ops", time.Second, func(c context.Context) error { a.ops.Stop(c); return nil })
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped", logx.Int64("watermark", a.watcher.Snapshot().Watermark))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
