package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/nordgren/eventscout/internal/browser"
	"github.com/nordgren/eventscout/internal/captcha"
	"github.com/nordgren/eventscout/internal/config"
	"github.com/nordgren/eventscout/internal/crawler"
	"github.com/nordgren/eventscout/internal/dedup"
	"github.com/nordgren/eventscout/internal/event"
	"github.com/nordgren/eventscout/internal/logger"
	"github.com/nordgren/eventscout/internal/recovery"
	"github.com/nordgren/eventscout/internal/storage"
	"github.com/nordgren/eventscout/internal/store"
	"github.com/nordgren/eventscout/internal/syncer"
)

// app holds the configuration and storage shared by every command.
type app struct {
	cfg     config.Config
	storage *storage.Storage
}

func newApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, os.Stderr))

	st, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	return &app{cfg: cfg, storage: st}, nil
}

func (a *app) sources() ([]crawler.Source, error) {
	if len(a.cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	out := make([]crawler.Source, 0, len(a.cfg.Sources))
	for _, sc := range a.cfg.Sources {
		src, err := crawler.NewSelectorSource(sc.Name, sc.URL, sc.Selectors)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

func (a *app) buildCrawler() (*crawler.Crawler, error) {
	engines, err := browser.EnginesByName(a.cfg.Browser.Engines)
	if err != nil {
		return nil, err
	}

	sessions := browser.NewManager(engines, rand.New(rand.NewSource(time.Now().UnixNano())))
	sessions.SetDelays(browser.Delays{
		PreMin:  a.cfg.Browser.PreMin,
		PreMax:  a.cfg.Browser.PreMax,
		PostMin: a.cfg.Browser.PostMin,
		PostMax: a.cfg.Browser.PostMax,
	})

	rec := recovery.NewManager(sessions)
	rec.SetBackoff(a.cfg.Recovery.InitialBackoff, a.cfg.Recovery.MaxBackoff)

	c := crawler.New(sessions, rec, a.buildResolver())
	c.SetNavTimeout(a.cfg.Browser.NavTimeout)
	return c, nil
}

// buildResolver returns nil when no provider is configured; CAPTCHA walls
// then go straight to recovery.
func (a *app) buildResolver() *captcha.Resolver {
	if len(a.cfg.Captcha.Providers) == 0 {
		return nil
	}
	providers := make([]captcha.Provider, 0, len(a.cfg.Captcha.Providers))
	for _, pc := range a.cfg.Captcha.Providers {
		providers = append(providers, captcha.NewHTTPProvider(pc.Name, pc.Endpoint, pc.APIKey))
	}
	r := captcha.NewResolver(providers)
	r.SetTiming(a.cfg.Captcha.PollInterval, a.cfg.Captcha.SolveTimeout, a.cfg.Captcha.Settle)
	return r
}

// buildStore selects the external store: Postgres when a DSN is set, the
// in-memory store for dry runs or when no DSN is configured.
func (a *app) buildStore(ctx context.Context) (store.Store, error) {
	if flagDryRun || a.cfg.Store.DSN == "" {
		logger.Info("Using in-memory store", logger.Fields{"dry_run": flagDryRun})
		return store.NewMemory(), nil
	}
	return store.NewPostgres(ctx, a.cfg.Store.DSN)
}

func (a *app) buildSyncer(st store.Store) (*syncer.Manager, error) {
	tracker, err := dedup.Load(a.storage.TrackerPath())
	if err != nil {
		return nil, err
	}
	m := syncer.New(event.NewValidator(), tracker, st)
	m.SetChunkSize(a.cfg.Sync.ChunkSize)
	m.SetRetention(a.cfg.Sync.RetentionDays)
	return m, nil
}

// withLock runs fn while holding the crawl lock, so concurrent runs never
// race over the candidates file and the tracker.
func (a *app) withLock(fn func() error) error {
	lock, err := a.storage.AcquireLock(storage.DefaultLockTTL)
	if err != nil {
		return err
	}
	defer lock.Release() // nolint:errcheck
	return fn()
}
