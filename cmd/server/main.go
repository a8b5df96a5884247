// cmd/server/main.go - TourScrapexter HTTP service
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valpere/TourScrapexter/internal/browser"
	"github.com/valpere/TourScrapexter/internal/config"
	apperrors "github.com/valpere/TourScrapexter/internal/errors"
	"github.com/valpere/TourScrapexter/internal/monitoring"
	"github.com/valpere/TourScrapexter/internal/scraper"
	"github.com/valpere/TourScrapexter/internal/utils"
	"github.com/valpere/TourScrapexter/pkg/api"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	goroutineLimit    = 10000
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tourscrapexter: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := utils.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return apperrors.Wrap(apperrors.KindConfig, "parse log level", err)
	}
	logger, err := utils.NewLoggerWithLevel(level)
	if err != nil {
		return apperrors.Wrap(apperrors.KindConfig, "create logger", err)
	}
	if syncer, ok := logger.(interface{ Sync() error }); ok {
		defer syncer.Sync()
	}

	logger.WithFields(map[string]interface{}{
		"version":    version,
		"build_time": buildTime,
		"git_commit": gitCommit,
		"workers":    cfg.Workers,
		"site":       cfg.Site.SiteURL,
	}).Info("starting TourScrapexter")

	pool, err := browser.NewBrowserPool(browserConfig(cfg), cfg.Workers)
	if err != nil {
		return err
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warnf("closing browser pool: %v", err)
		}
	}()
	logger.Infof("browser pool ready with %d browsers", pool.Size())

	handler, cleanup, err := buildHandler(cfg, pool, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return apperrors.Wrap(apperrors.KindConfig, "listen on "+cfg.ListenAddr, err)
	}

	return serve(ctx, newHTTPServer(handler, cfg), listener, logger)
}

func browserConfig(cfg *config.Config) *browser.BrowserConfig {
	bc := browser.DefaultBrowserConfig()
	bc.Headless = cfg.Headless
	bc.ExecPath = cfg.ChromePath
	bc.UserAgent = cfg.UserAgent
	bc.AcquireTimeout = cfg.AcquireTimeout
	return bc
}

// buildHandler wires the engine, metrics and health checks around pool. The
// returned cleanup stops the engine's workers.
func buildHandler(cfg *config.Config, pool *browser.BrowserPool, logger utils.Logger) (http.Handler, func(), error) {
	metrics := monitoring.NewMetricsManager(monitoring.MetricsConfig{
		EnableGoMetrics:      true,
		EnableProcessMetrics: true,
	})
	metrics.RegisterBrowserPool(pool.Stats)

	health := monitoring.NewHealthManager(monitoring.HealthConfig{Version: version})
	health.RegisterCheck(monitoring.BrowserPoolHealthCheck(pool.Stats))
	health.RegisterCheck(monitoring.GoroutineHealthCheck(goroutineLimit))

	engine, err := scraper.NewEngine(pool, scraper.EngineConfig{
		Markup:         cfg.Site,
		Workers:        cfg.Workers,
		RequestTimeout: cfg.RequestTimeout,
		WaitTimeout:    cfg.WaitTimeout,
		Fetcher: scraper.FetcherConfig{
			Timeout:   cfg.FetchTimeout,
			RateLimit: cfg.FetchRateLimit,
			RateBurst: 1,
			Headers:   map[string]string{"Referer": cfg.Site.SiteURL},
		},
	}, scraper.WithLogger(logger), scraper.WithObserver(metrics))
	if err != nil {
		return nil, nil, err
	}

	server := api.NewServer(engine, api.ServerConfig{
		APIKey:     cfg.APIKey,
		RateLimit:  cfg.RateLimit,
		ErrorCodes: cfg.ErrorCodes,
	}, api.WithLogger(logger), api.WithMetrics(metrics), api.WithHealth(health))

	return server.Routes(), engine.Close, nil
}

func newHTTPServer(handler http.Handler, cfg *config.Config) *http.Server {
	// Writes may take as long as the whole scrape
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readHeaderTimeout,
		WriteTimeout:      cfg.RequestTimeout + readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// serve runs server on listener until ctx is done, then drains in-flight
// requests for up to shutdownTimeout.
func serve(ctx context.Context, server *http.Server, listener net.Listener, logger utils.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", listener.Addr())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return apperrors.Wrap(apperrors.KindInternal, "serve", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "shutdown", err)
	}
	logger.Info("server stopped")
	return nil
}
