package app

import (
	"context"
	"fmt"
	"net"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/imagerate-backend/internal/data/aggregates"
	"github.com/yungbote/imagerate-backend/internal/data/db"
	"github.com/yungbote/imagerate-backend/internal/data/repos"
	httpapi "github.com/yungbote/imagerate-backend/internal/http"
	"github.com/yungbote/imagerate-backend/internal/observability"
	"github.com/yungbote/imagerate-backend/internal/platform/dbctx"
	"github.com/yungbote/imagerate-backend/internal/platform/envutil"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

type Options struct {
	// EnvFile is loaded before config is read. Defaults to .env.
	EnvFile string
}

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Repos    repos.Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics
	Router   *gin.Engine

	store        *db.Service
	otelShutdown func(context.Context) error
}

func New(ctx context.Context, opts Options) (*App, error) {
	if err := LoadDotEnv(opts.EnvFile); err != nil {
		return nil, err
	}

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	store, err := db.NewService(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := db.AutoMigrateAll(store.DB()); err != nil {
		_ = store.Close()
		log.Sync()
		return nil, fmt.Errorf("db automigrate: %w", err)
	}
	theDB := store.DB()
	sqlDB, err := theDB.DB()
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, fmt.Errorf("db handle: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	metrics := observability.NewMetrics(cfg.MetricsEnabled)
	var hooks aggregates.Hooks = aggregates.NewLogHooks(log)
	if metrics != nil {
		hooks = metrics
	}

	reposet := repos.New(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, hooks)
	handlerset := wireHandlers(log, cfg, sqlDB, serviceset)
	router := wireRouter(log, cfg, metrics, handlerset)

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           theDB,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		Router:       router,
		store:        store,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled. When the catalog is empty and
// SYNC_ON_START is on, a first reconciliation runs alongside the server.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}

	g, gctx := errgroup.WithContext(ctx)

	addr := net.JoinHostPort("", a.Cfg.Port)
	srv := httpapi.NewServer(addr, a.Router)
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", addr)
		return srv.Run(gctx)
	})

	if a.Cfg.SyncOnStart && a.Clients.Lister != nil {
		g.Go(func() error {
			a.initialSync(gctx)
			return nil
		})
	}

	return g.Wait()
}

func (a *App) initialSync(ctx context.Context) {
	n, err := a.Repos.Asset.Count(dbctx.Context{Ctx: ctx})
	if err != nil {
		a.Log.Warn("initial sync skipped: count failed", "error", err)
		return
	}
	if n > 0 {
		a.Log.Debug("initial sync skipped: catalog not empty", "assets", n)
		return
	}
	report, err := a.Services.Sync.Sync(ctx, false)
	if err != nil {
		a.Log.Warn("initial sync failed", "error", err)
		return
	}
	a.Log.Info("initial sync finished",
		"run_id", report.RunID,
		"added", report.Added,
		"skipped", report.Skipped,
		"more_remaining", report.MoreRemaining,
	)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close(a.Log)
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
