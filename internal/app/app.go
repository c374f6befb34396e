package app

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/eventbus"
	"remindbot/internal/notifier"
	"remindbot/internal/reminder"
	rtsup "remindbot/internal/runtime/supervisor"
	"remindbot/internal/storage"
	"remindbot/internal/task/scheduler"
	kit "remindbot/internal/transport"
	"remindbot/internal/transport/discord"
	"remindbot/internal/transport/router"
	telegram "remindbot/internal/transport/telegram/adapter"
	logx "remindbot/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapters []kit.Adapter

	sched     *scheduler.Service
	notif     *notifier.Service
	reminders *reminder.Service
	router    *router.Manager
}

// Option tweaks construction (tests).
type Option func(*options)

type options struct {
	lookup  config.LookupFunc
	offline bool
}

// WithLookup replaces the environment source used by the config manager.
func WithLookup(fn config.LookupFunc) Option { return func(o *options) { o.lookup = fn } }

// WithOfflineTelegram skips the Telegram getMe call.
func WithOfflineTelegram() Option { return func(o *options) { o.offline = true } }

func NewApp(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	cfgm := config.NewManager(cfgPath)
	if o.lookup != nil {
		cfgm.SetLookup(o.lookup)
	}
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// Adapters are built before the logging service so the chat sink can use one.
	adapters, err := buildAdapters(cfg, o.offline)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg), chatSender(cfg, adapters))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	schedSvc := scheduler.New(scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Location: loc,
	}, log.With(logx.String("comp", "scheduler")), bus)

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notifier.New(ncfg, log.With(logx.String("comp", "notifier")), bus, adapters...)

	remSvc := reminder.NewService(loc, schedSvc, notifSvc, log.With(logx.String("comp", "reminder")))

	rt := router.NewManager(log.With(logx.String("comp", "router")))
	rt.SetRegistry(router.ReminderCommands(remSvc))

	return &App{
		cfgPath:   cfgPath,
		cfgm:      cfgm,
		log:       log,
		logs:      logSvc,
		bus:       bus,
		store:     store,
		adapters:  adapters,
		sched:     schedSvc,
		notif:     notifSvc,
		reminders: remSvc,
		router:    rt,
	}, nil
}

func buildAdapters(cfg *config.Config, offline bool) ([]kit.Adapter, error) {
	var out []kit.Adapter
	if cfg.Discord.Enabled {
		var key ed25519.PublicKey
		if cfg.Discord.VerifySignatures {
			k, err := config.ParsePublicKey(cfg.Discord.PublicKey)
			if err != nil {
				return nil, fmt.Errorf("discord.public_key: %w", err)
			}
			key = k
		}
		bootLog := logx.NewConsole("INFO").With(logx.String("comp", "discord"))
		out = append(out, discord.New(discord.Config{
			AppID:            cfg.Discord.AppID,
			Token:            cfg.Discord.Token,
			PublicKey:        key,
			VerifySignatures: cfg.Discord.VerifySignatures,
			ListenAddr:       cfg.Discord.ListenAddr,
		}, bootLog, nil))
	}
	if cfg.Telegram.Enabled {
		pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
		if err != nil {
			return nil, err
		}
		bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
		ad, err := telegram.New(telegram.Config{
			Token:       cfg.Telegram.Token,
			PollTimeout: pollTimeout,
			Offline:     offline,
		}, bootLog)
		if err != nil {
			return nil, err
		}
		out = append(out, ad)
	}
	if len(out) == 0 {
		return nil, errors.New("no chat platform enabled")
	}
	return out, nil
}

// chatSender picks the adapter that receives mirrored log lines.
func chatSender(cfg *config.Config, adapters []kit.Adapter) kit.Adapter {
	want := kit.Platform(strings.ToLower(strings.TrimSpace(cfg.Logging.Chat.Platform)))
	for _, ad := range adapters {
		if ad.Platform() == want {
			return ad
		}
	}
	return nil
}

// Handler is the command router every adapter dispatches into.
func (a *App) Handler() kit.Handler { return a.router }

// Adapters returns the enabled chat platforms in construction order.
func (a *App) Adapters() []kit.Adapter { return a.adapters }

// Reminders exposes the reminder service (tests, tooling).
func (a *App) Reminders() *reminder.Service { return a.reminders }

// Store returns the audit store, or nil if storage is disabled.
func (a *App) Store() storage.Store { return a.store }

// StatusLine is a one-line summary for the service manager.
func (a *App) StatusLine() string {
	snap := a.sched.Snapshot()
	failed := 0
	for _, h := range a.notif.Snapshot() {
		if !h.OK {
			failed++
		}
	}
	return fmt.Sprintf("tz=%s pending=%d fired=%d recent_send_failures=%d",
		snap.Timezone, len(snap.Triggers), snap.Fired, failed)
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, oldCfg, newCfg *config.Config) error {
		if err := config.ValidateReload(oldCfg, newCfg); err != nil {
			return err
		}
		if _, err := mapNotifierConfig(newCfg); err != nil {
			return err
		}
		_, _, err := mapStorageConfig(newCfg)
		return err
	})

	// The scheduler is up before any adapter can accept a command.
	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	} else {
		a.log.Warn("scheduler disabled; reminder commands will fail")
	}

	for _, ad := range a.adapters {
		if err := ad.Start(a.sup.Context(), a.router); err != nil {
			return fmt.Errorf("start %s adapter: %w", ad.Platform(), err)
		}
		a.log.Info("adapter started", logx.String("platform", string(ad.Platform())))
		if mu, ok := ad.(kit.CommandMenuUpdater); ok {
			mctx, cancel := context.WithTimeout(a.sup.Context(), 5*time.Second)
			if err := mu.UpdateMenuCommands(mctx, a.router.MenuCommands()); err != nil {
				a.log.Warn("menu update failed", logx.String("platform", string(ad.Platform())), logx.Err(err))
			}
			cancel()
		}
	}

	if a.store != nil {
		events, unsub := a.bus.Subscribe(256)
		a.sup.Go0("audit.record", func(c context.Context) {
			defer unsub()
			runAudit(c, a.log.With(logx.String("comp", "audit")), a.store, events)
		})
	}

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started", logx.String("tz", a.reminders.Location().String()))
	return nil
}

// restartSections change only at startup.
var restartSections = map[string]bool{
	"timezone":  true,
	"discord":   true,
	"telegram":  true,
	"scheduler": true,
	"storage":   true,
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	for _, s := range sections {
		if restartSections[s] {
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	a.logs.Apply(mapLogConfig(newCfg))

	if ncfg, err := mapNotifierConfig(newCfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// First, cancel the app run context so background loops start unwinding immediately.
	a.sup.Cancel()

	snap := a.sched.Snapshot()
	a.log.Info("scheduler summary",
		logx.Uint64("armed", snap.Armed),
		logx.Uint64("fired", snap.Fired),
		logx.Uint64("failed", snap.Failed),
		logx.Uint64("misfired", snap.Misfired),
		logx.Int("dropped_pending", len(snap.Triggers)),
	)

	// Adapters go first so no new reminder is armed while triggers are torn down.
	for _, ad := range a.adapters {
		ad := ad
		a.step(ctx, "adapter."+string(ad.Platform()), 3*time.Second, ad.Stop)
	}
	a.step(ctx, "scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	a.step(ctx, "supervisor", 2*time.Second, a.sup.Wait)
	a.step(ctx, "storage", 1*time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step with an upper bound so one component can't
// stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

	// respect the caller's deadline; never extend it
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < max {
			max = rem
		}
	}
	if max <= 0 {
		a.log.Warn("stop step skipped, no time left", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
		go func() {
			err := <-done
			took := time.Since(start)
			if err != nil {
				a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err), logx.Duration("took", took))
			} else {
				a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
			}
		}()
	}
}
