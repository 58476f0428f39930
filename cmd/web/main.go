// cmd/web/main.go
//
// ThreadStead widget runtime – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Bootstrap a console logger so config failures surface.
//
//  2. Load configuration (dotenv → conf/global.yaml → THREADSTEAD_ env,
//     with vault: references resolved), then start the rotating logger.
//
//  3. Open the MySQL pool.  The ACL store resolves viewers from it and
//     the SQL-backed widgets and preferences read from it.
//
//  4. Build the widget registry: built-in catalog plus the optional
//     widgets.yaml overrides.
//
//  5. Build the board hub (one live board per viewer) and start its
//     eviction loop.
//
//  6. Build the chi router:
//
//     • RequestID, RealIP, Recoverer   – chi stock middleware
//     • ForceHTTPS, Security           – internal/middleware
//     • requestinfo.Enricher           – UA and GeoIP per request
//     • auth.Resolve                   – session cookie → *widget.Viewer
//     • /metrics                       – Prometheus
//     • home, widgets (, debug)        – components
//
//  7. Serve until SIGINT or SIGTERM, then shut down gracefully.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	debugc "github.com/yanizio/threadstead/components/debug"
	homec "github.com/yanizio/threadstead/components/home"
	widgetsc "github.com/yanizio/threadstead/components/widgets"
	"github.com/yanizio/threadstead/internal/acl"
	"github.com/yanizio/threadstead/internal/auth"
	"github.com/yanizio/threadstead/internal/board"
	"github.com/yanizio/threadstead/internal/component"
	"github.com/yanizio/threadstead/internal/config"
	"github.com/yanizio/threadstead/internal/database"
	"github.com/yanizio/threadstead/internal/fetch"
	"github.com/yanizio/threadstead/internal/logger"
	"github.com/yanizio/threadstead/internal/middleware"
	"github.com/yanizio/threadstead/internal/preferences"
	"github.com/yanizio/threadstead/internal/requestinfo"
	"github.com/yanizio/threadstead/internal/server"
	"github.com/yanizio/threadstead/internal/widget"
	"github.com/yanizio/threadstead/internal/widgets"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	boot := logger.Bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot.Fatalw("load config", "err", err)
	}

	log, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		boot.Fatalw("start logger", "err", err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalw("threadstead exited", "err", err)
	}
	log.Info("threadstead stopped")
}

// run wires every dependency and blocks until ctx is done or a worker
// fails.
func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	//
	// ── 1.  Database ────────────────────────────────────────────────────
	//
	dbOpts := database.DefaultOptions()
	dbOpts.MaxOpenConns = cfg.Database.MaxOpen
	dbOpts.MaxIdleConns = cfg.Database.MaxIdle
	db, err := database.OpenWithOptions(ctx, cfg.Database.ResolvedDSN(), dbOpts)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database online")

	//
	// ── 2.  Outbound HTTP clients ───────────────────────────────────────
	//
	api, err := fetch.New(fetch.Options{
		BaseURL: cfg.Widgets.APIBase,
		Timeout: cfg.Widgets.HTTPTimeout,
		Retries: cfg.Widgets.HTTPRetries,
		Logger:  log,
	})
	if err != nil {
		return err
	}
	wx, err := fetch.New(fetch.Options{
		Timeout: cfg.Widgets.HTTPTimeout,
		Retries: cfg.Widgets.HTTPRetries,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	//
	// ── 3.  Registry ────────────────────────────────────────────────────
	//
	overrides, err := widgets.LoadOverrides(cfg.CatalogPath())
	if err != nil {
		return err
	}
	reg := widget.NewRegistry()
	if err := widgets.Bootstrap(reg, widgets.Deps{
		API:       api,
		Weather:   wx,
		WeatherIn: cfg.Weather,
		DB:        db,
		Overrides: overrides,
		Log:       log,
	}); err != nil {
		return err
	}
	log.Infow("widget registry ready", "widgets", reg.Len())

	//
	// ── 4.  Preferences and board hub ───────────────────────────────────
	//
	prefs, err := preferences.New(db, reg, cfg.Preferences.CacheSize)
	if err != nil {
		return err
	}
	hub := board.NewHub(reg, prefs, log, board.HubOptions{
		IdleTTL:       cfg.Board.IdleTTL,
		MaxBoards:     cfg.Board.MaxBoards,
		EvictInterval: cfg.Board.EvictInterval,
		BoardOptions: []board.Option{
			board.WithLogger(log),
			board.WithRefreshURL(homec.RefreshPath),
		},
	})

	//
	// ── 5.  Request enrichment ──────────────────────────────────────────
	//
	geoPath := cfg.GeoIP.Path
	if geoPath != "" && !filepath.IsAbs(geoPath) {
		geoPath = filepath.Join(cfg.Paths.Root, geoPath)
	}
	enricher, err := requestinfo.New(geoPath, log)
	if err != nil {
		return err
	}
	defer enricher.Close()

	//
	// ── 6.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	r.Use(middleware.Security)
	r.Use(enricher.Handler)
	r.Use(auth.Resolve(acl.NewStore(db), log))

	r.Handle("/metrics", promhttp.Handler())

	components := []component.Component{
		homec.New(homec.Deps{Hub: hub, RenderWait: cfg.Widgets.RenderWait, Log: log}),
		widgetsc.New(widgetsc.Deps{Registry: reg, Prefs: prefs, Hub: hub, Log: log}),
	}
	if cfg.HTTP.Debug {
		log.Warn("debug routes enabled")
		components = append(components, debugc.New(hub, log))
	}
	component.Mount(r, log, components...)

	//
	// ── 7.  Serve ───────────────────────────────────────────────────────
	//
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return server.Serve(gctx, server.New(cfg.HTTP.ListenAddr, r), log) })
	return g.Wait()
}
