// Package app は設定から書き換えに必要な部品一式を組み立てます。
// serve と CLI の rewrite / settings はすべてここで作った App を使います。
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"geminify/cache"
	"geminify/config"
	"geminify/gemini"
	"geminify/interfaces"
	"geminify/metrics"
	"geminify/platform"
	"geminify/rewrite"
	"geminify/servers"
	"geminify/settings"
	"geminify/storage"
)

// App は起動中のプロセスが共有する部品です。
type App struct {
	Config       *config.Config
	Log          interfaces.Logger
	Store        *storage.DBStore
	Settings     *settings.Manager
	Rewriter     *rewrite.Orchestrator
	Capabilities platform.Capabilities
}

// Capabilities は設定の platform.mode から実行環境の能力値を検出します。
func Capabilities(cfg *config.Config) (platform.Capabilities, error) {
	mode, err := platform.ParseMode(cfg.Platform.Mode)
	if err != nil {
		return platform.Capabilities{}, err
	}
	return platform.Detect(platform.CurrentEnvironment(mode)), nil
}

// New はDBを開き、保存済みの設定で Orchestrator を作成します。
// notifier は nil でも構いません。
func New(ctx context.Context, cfg *config.Config, log interfaces.Logger, notifier interfaces.Notifier) (*App, error) {
	caps, err := Capabilities(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := gemini.ParseBackend(cfg.Gemini.Backend)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewDBStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	mgr := settings.NewManager(store, cfg.Defaults, log)
	current, err := mgr.Load(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := newCache(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	baseURL := cfg.Gemini.BaseURL
	orch, err := rewrite.New(ctx, current, rewrite.Options{
		Capabilities: caps,
		Cooldown:     cfg.Gemini.Cooldown,
		BaseDelay:    cfg.Gemini.BaseDelay,
		NewGenerator: func(ctx context.Context, apiKey string) (gemini.Generator, error) {
			return gemini.NewGenerator(ctx, backend, apiKey, baseURL)
		},
		Cache:    c,
		History:  store,
		Notifier: notifier,
		Logger:   log,
	})
	if err != nil {
		if c != nil {
			c.Close()
		}
		store.Close()
		return nil, err
	}

	mgr.Subscribe(func(s settings.Settings) {
		if err := orch.Reconfigure(context.Background(), s); err != nil {
			log.Error("設定の再適用に失敗しました", "error", err)
		}
	})

	log.Info("アプリケーションを初期化しました",
		"platform", caps.Kind,
		"backend", backend,
		"configured", orch.IsConfigured(),
		"cache", cacheName(cfg),
	)

	return &App{
		Config:       cfg,
		Log:          log,
		Store:        store,
		Settings:     mgr,
		Rewriter:     orch,
		Capabilities: caps,
	}, nil
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Cache.Backend) {
	case "", "memory":
		return cache.NewMemory(cfg.Cache.TTL), nil
	case "redis":
		return cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Cache.TTL,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func cacheName(cfg *config.Config) string {
	if !cfg.Cache.Enabled {
		return "off"
	}
	if cfg.Cache.Backend == "" {
		return "memory"
	}
	return cfg.Cache.Backend
}

// Jobs は serve が定期実行するメンテナンス処理です。
func (a *App) Jobs() []servers.Job {
	schedule := a.Config.Storage.PurgeSchedule
	return []servers.Job{
		{Name: "purge-previews", Spec: schedule, Run: a.PurgePreviews},
		{Name: "purge-history", Spec: schedule, Run: a.PurgeHistory},
	}
}

// PurgePreviews は期限切れと解決済みのプレビューを削除し、保留数のゲージを更新します。
func (a *App) PurgePreviews(ctx context.Context) error {
	n, err := a.Store.PurgeExpiredPreviews(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		a.Log.Info("プレビューを削除しました", "count", n)
	}
	pending, err := a.Store.CountPendingPreviews(ctx)
	if err != nil {
		return err
	}
	metrics.PreviewsPending.Set(float64(pending))
	return nil
}

// PurgeHistory は保持期間を過ぎた履歴を削除します。保持期間が0以下なら何もしません。
func (a *App) PurgeHistory(ctx context.Context) error {
	retention := a.Config.Storage.HistoryRetention
	if retention <= 0 {
		return nil
	}
	n, err := a.Store.PurgeHistory(ctx, time.Now().Add(-retention))
	if err != nil {
		return err
	}
	if n > 0 {
		a.Log.Info("履歴を削除しました", "count", n)
	}
	return nil
}

// Close は Orchestrator (キャッシュを含む) とDBを閉じます。
func (a *App) Close() error {
	return errors.Join(a.Rewriter.Close(), a.Store.Close())
}
