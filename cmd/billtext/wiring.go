package main

import (
	"fmt"

	"github.com/rs/zerolog"

	billtext "github.com/porticus-lab/go-bill-text"
	"github.com/porticus-lab/go-bill-text/internal/cleanup"
	"github.com/porticus-lab/go-bill-text/internal/config"
)

// newLauncher builds the browser launcher from configuration.
func newLauncher(cfg *config.Config, log zerolog.Logger) *billtext.ChromeLauncher {
	opts := []billtext.Option{
		billtext.WithBaseURL(cfg.Portal.BaseURL),
		billtext.WithStepTimeout(cfg.Portal.StepTimeout),
		billtext.WithAccountTimeout(cfg.Portal.AccountTimeout),
		billtext.WithDebugDir(cfg.Portal.DebugDir),
		billtext.WithLogger(log.With().Str("component", "portal").Logger()),
	}
	if cfg.Portal.ChromePath != "" {
		opts = append(opts, billtext.WithChromePath(cfg.Portal.ChromePath))
	}
	if cfg.Portal.NoSandbox {
		opts = append(opts, billtext.WithNoSandbox())
	}
	if cfg.Portal.Headful {
		opts = append(opts, billtext.WithHeadful())
	}
	if cfg.Portal.AutoDownload {
		opts = append(opts, billtext.WithAutoDownload())
	}
	return billtext.NewChromeLauncher(opts...)
}

// newFetcher wires the launcher, watcher, extractor and cleaner.
func newFetcher(cfg *config.Config, log zerolog.Logger, cleaner billtext.Cleaner) (*billtext.Fetcher, error) {
	engine, err := billtext.EngineByName(cfg.Extract.Engine)
	if err != nil {
		return nil, err
	}
	fetchLog := log.With().Str("component", "fetcher").Logger()
	watcher := billtext.NewWatcher(
		billtext.WithPollInterval(cfg.Download.PollInterval),
		billtext.WithWatchLogger(fetchLog),
	)
	return billtext.NewFetcher(newLauncher(cfg, log),
		billtext.WithDownloadRoot(cfg.Download.Dir),
		billtext.WithDownloadTimeout(cfg.Download.Timeout),
		billtext.WithSettleDelay(cfg.Download.Settle),
		billtext.WithCleanup(cleaner, cfg.Cleanup.Delay),
		billtext.WithWatcher(watcher),
		billtext.WithExtractor(billtext.NewExtractor(engine)),
		billtext.WithMaxSessions(int64(cfg.Server.MaxSessions)),
		billtext.WithFetchLogger(fetchLog),
	), nil
}

// newStore opens the configured cleanup store. The returned function
// releases it.
func newStore(cfg *config.Config) (cleanup.Store, func() error, error) {
	switch cfg.Cleanup.Store {
	case "redis":
		store, err := cleanup.NewRedisStore(cleanup.RedisConfig{
			Addr:     cfg.Cleanup.Redis.Addr,
			Password: cfg.Cleanup.Redis.Password,
			DB:       cfg.Cleanup.Redis.DB,
			Prefix:   cfg.Cleanup.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open redis cleanup store: %w", err)
		}
		return store, store.Close, nil
	default:
		return cleanup.NewMemoryStore(), func() error { return nil }, nil
	}
}

func newScheduler(cfg *config.Config, store cleanup.Store, log zerolog.Logger) *cleanup.Scheduler {
	return cleanup.New(store,
		cleanup.WithRoot(cfg.Download.Dir),
		cleanup.WithInterval(cfg.Cleanup.Interval),
		cleanup.WithMaxAttempts(cfg.Cleanup.MaxAttempts),
		cleanup.WithLogger(log.With().Str("component", "cleanup").Logger()),
	)
}
