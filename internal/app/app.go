// Package app assembles the services and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"tabelbot/internal/attendance"
	"tabelbot/internal/bot"
	"tabelbot/internal/config"
	"tabelbot/internal/notify"
	"tabelbot/internal/schedule"
	"tabelbot/internal/storage"
	"tabelbot/internal/transport/telegram"
	logx "tabelbot/pkg/logx"
)

type App struct {
	cfgPath string
	cfg     config.Config

	logs *logx.Service
	log  logx.Logger

	store   *storage.Store
	adapter *telegram.Adapter
	sched   *schedule.Service
	notif   *notify.Manager
	router  *bot.Router

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return nil, fmt.Errorf("storage dir: %w", err)
	}
	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout.Std(),
		MainAdminID: cfg.MainAdminID,
	}, logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeout.Std(),
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sched := schedule.New(schedule.Config{
		Workers:  2,
		Timezone: cfg.Timezone,
	}, logSvc.Logger().With(logx.String("comp", "scheduler")))

	notifier := notify.NewNotifier(adapter, cfg.Notifications.RatePerSec,
		logSvc.Logger().With(logx.String("comp", "notifier")))
	jobs := notify.NewJobs(store, notifier, notify.JobsConfig{
		RetentionDays: cfg.Notifications.RetentionDays,
		CleanupAt:     cfg.Notifications.CleanupAt,
	}, logSvc.Logger().With(logx.String("comp", "jobs")))
	mgr, err := notify.NewManager(cfg.Notifications.SettingsPath, sched, jobs,
		logSvc.Logger().With(logx.String("comp", "notify")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	engine := attendance.NewEngine(store, logSvc.Logger().With(logx.String("comp", "attendance")))
	router := bot.NewRouter(bot.Config{
		MainAdminID:   cfg.MainAdminID,
		Locations:     cfg.Journal.Locations,
		HomeLocation:  cfg.Journal.HomeLocation,
		RetentionDays: cfg.Notifications.RetentionDays,
	}, store, engine, mgr, adapter, logSvc.Logger().With(logx.String("comp", "bot")))

	return &App{
		cfgPath: cfgPath,
		cfg:     cfg,
		logs:    logSvc,
		log:     log,
		store:   store,
		adapter: adapter,
		sched:   sched,
		notif:   mgr,
		router:  router,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.adapter.Start(runCtx, a.router.Updates()); err != nil {
		cancel()
		return err
	}

	a.sched.Start(runCtx)
	if err := a.notif.Start(); err != nil {
		cancel()
		return fmt.Errorf("notification jobs: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.router.Run(runCtx)
	}()

	// Hot reload covers the log level only; everything else needs a
	// restart and a changed value is just reported.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := config.Watch(runCtx, a.cfgPath, a.log, func(next config.Config) {
			a.logs.Apply(logx.Config{
				Level:   next.Logging.Level,
				Console: next.Logging.Console,
				File: logx.FileConfig{
					Enabled: next.Logging.File.Enabled,
					Path:    next.Logging.File.Path,
				},
			})
			if next.Telegram.Token != a.cfg.Telegram.Token || next.MainAdminID != a.cfg.MainAdminID {
				a.log.Warn("telegram token or main admin changed, restart required")
			}
		})
		if err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started",
		logx.String("db", a.cfg.Storage.Path),
		logx.Int("locations", len(a.cfg.Journal.Locations)))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("stopping")

	if a.cancel != nil {
		a.cancel()
	}

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step failed", logx.String("step", name), logx.Err(err))
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })

	done := make(chan struct{})
	go func() { a.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		a.log.Warn("background loops did not finish in time")
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logs.Close()
}
