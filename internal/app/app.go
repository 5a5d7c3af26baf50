// Package app wires the application together: config, logging, storage,
// the feed pipeline, the Telegram surface, and the updater loop.
package app

import (
	"context"
	"sync"
	"time"

	"rsscat/internal/config"
	"rsscat/internal/feed"
	"rsscat/internal/storage"
	"rsscat/internal/subscription"
	telegram "rsscat/internal/transport/telegram"
	"rsscat/internal/updater"
	"rsscat/internal/validate"
	logx "rsscat/pkg/logx"
)

type App struct {
	cfgPath string
	cfgm    *config.Manager

	log  logx.Logger
	logs *logx.Service

	store    storage.Store
	client   *feed.Client
	parser   *feed.Parser
	composer *feed.Composer

	subs    *subscription.Service
	adapter *telegram.Adapter
	upd     *updater.Service

	// lastApplied is the config the live components currently run with,
	// used to detect sections that need a restart. Only the reload
	// goroutine touches it after Start.
	lastApplied *config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	store, err := storage.Open(mapStorageConfig(cfg), log.With(logx.String("comp", "storage")))
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	client := feed.NewClient(feed.ClientConfig{
		UserAgent:     cfg.Updater.UserAgent,
		RSSHubBackend: cfg.Updater.RSSHubBackend,
	}, log.With(logx.String("comp", "fetch")))
	parser := feed.NewParser()
	composer := feed.NewComposer(mapComposerConfig(cfg))

	coalescer := validate.NewCoalescer(client, parser, log.With(logx.String("comp", "validate")))

	updCfg, err := mapUpdaterConfig(cfg)
	if err != nil {
		store.Close()
		logSvc.Close()
		return nil, err
	}
	validateTimeout, err := config.ParseDurationOrDefault("updater.validate_timeout", cfg.Updater.ValidateTimeout, updCfg.FetchTimeout)
	if err != nil {
		store.Close()
		logSvc.Close()
		return nil, err
	}

	subs := subscription.New(store, coalescer, validateTimeout, log.With(logx.String("comp", "subscription")))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		store.Close()
		logSvc.Close()
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
	}, subs, log.With(logx.String("comp", "telegram")))
	if err != nil {
		store.Close()
		logSvc.Close()
		return nil, err
	}

	upd := updater.New(updCfg, store, client, parser, composer, adapter, log.With(logx.String("comp", "updater")))

	return &App{
		cfgPath:     cfgPath,
		cfgm:        cfgm,
		lastApplied: cfg,
		log:         log,
		logs:        logSvc,
		store:       store,
		client:      client,
		parser:      parser,
		composer:    composer,
		subs:        subs,
		adapter:     adapter,
		upd:         upd,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.adapter.Start(runCtx)
	a.upd.Start(runCtx)

	// hot reload fan-out
	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(newCfg)
			}
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil {
			a.log.Warn("config watcher exited", logx.Err(err))
		}
	}()

	a.log.Info("app started")
	return nil
}

// applyConfig pushes a reloaded config into the live components. Sections
// that cannot change at runtime (telegram token, storage) only log a warning.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	a.logs.Apply(mapLogConfig(cfg))

	updCfg, err := mapUpdaterConfig(cfg)
	if err != nil {
		a.log.Warn("invalid updater config; keeping previous", logx.Err(err))
	} else {
		a.upd.Apply(updCfg)
	}

	a.composer.Apply(mapComposerConfig(cfg))

	if old := a.lastApplied; old != nil {
		if old.Telegram.Token != cfg.Telegram.Token {
			a.log.Warn("telegram.token changed; restart required for changes to take effect")
		}
		if old.Storage != cfg.Storage {
			a.log.Warn("storage config changed; restart required for changes to take effect")
		}
	}
	a.lastApplied = cfg

	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	// Updater first so no tick broadcasts into a stopping adapter.
	a.upd.Stop(ctx)
	a.adapter.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("stop deadline reached while waiting for background loops")
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close failed", logx.Err(err))
	}

	a.log.Info("stopped")
	a.logs.Close()
	return nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) storage.Config {
	// The duration already passed validation in config.Parse.
	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	path := cfg.Storage.Path
	if path == "" && cfg.Storage.Driver != "memory" {
		path = "./rsscat.db"
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        path,
		BusyTimeout: busy,
	}
}

func mapUpdaterConfig(cfg *config.Config) (updater.Config, error) {
	interval, err := config.ParseDurationOrDefault("updater.interval", cfg.Updater.Interval, 5*time.Minute)
	if err != nil {
		return updater.Config{}, err
	}
	fetchTimeout, err := config.ParseDurationOrDefault("updater.fetch_timeout", cfg.Updater.FetchTimeout, 10*time.Second)
	if err != nil {
		return updater.Config{}, err
	}
	return updater.Config{
		Interval:     interval,
		FetchTimeout: fetchTimeout,
		Concurrency:  cfg.Updater.Concurrency,
	}, nil
}

func mapComposerConfig(cfg *config.Config) feed.ComposerConfig {
	fields := cfg.Composer.Fields
	if len(fields) == 0 {
		fields = config.DefaultComposerFields()
	}
	out := feed.ComposerConfig{
		EnableImgsKey: cfg.Composer.EnableXImgsKey,
		ToImg:         cfg.Composer.ToImg,
	}
	for _, f := range fields {
		out.Fields = append(out.Fields, feed.FieldFlag{Key: f.Key, Enabled: f.Enabled})
	}
	return out
}
