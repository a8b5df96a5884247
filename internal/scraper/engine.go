// internal/scraper/engine.go
package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/valpere/TourScrapexter/internal/browser"
	apperrors "github.com/valpere/TourScrapexter/internal/errors"
	"github.com/valpere/TourScrapexter/internal/utils"
)

// Pipeline stages reported to the Observer
const (
	StageResolve = "resolve"
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageTotal   = "total"
)

// EngineConfig defines the configuration for the tour engine
type EngineConfig struct {
	Markup         Markup        `yaml:"markup" json:"markup"`
	Workers        int           `yaml:"workers" json:"workers"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	WaitTimeout    time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	Fetcher        FetcherConfig `yaml:"-" json:"-"`
}

// PageFetcher downloads one page
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Observer receives the duration and outcome of each pipeline stage
type Observer interface {
	ObserveStage(stage string, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration, error) {}

// Engine runs the resolve, fetch and extract pipeline for one tour_id.
type Engine struct {
	resolver       *Resolver
	fetcher        PageFetcher
	extractor      *Extractor
	workers        *utils.WorkerPool[string]
	requestTimeout time.Duration
	logger         utils.Logger
	observer       Observer
}

// EngineOption customizes an Engine
type EngineOption func(*Engine)

// WithFetcher replaces the HTTP fetcher
func WithFetcher(f PageFetcher) EngineOption {
	return func(e *Engine) { e.fetcher = f }
}

// WithObserver sets the stage observer
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(l utils.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine that resolves tours on pool. The worker pool
// is sized like the browser pool so resolutions never queue on Acquire.
func NewEngine(pool browser.Pool, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if config.Workers <= 0 {
		return nil, apperrors.Newf(apperrors.KindConfig, "create engine", "workers must be positive, got %d", config.Workers)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 60 * time.Second
	}

	if err := config.Markup.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "create engine", err)
	}

	extractor, err := NewExtractor(config.Markup)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		extractor:      extractor,
		requestTimeout: config.RequestTimeout,
		logger:         utils.NewNopLogger(),
		observer:       nopObserver{},
	}
	for _, opt := range opts {
		opt(engine)
	}

	if engine.fetcher == nil {
		engine.fetcher = NewFetcher(config.Fetcher)
	}

	resolver, err := NewResolver(pool, config.Markup, config.WaitTimeout, engine.logger)
	if err != nil {
		return nil, err
	}
	engine.resolver = resolver
	engine.workers = utils.NewWorkerPool[string](config.Workers)

	return engine, nil
}

// Scrape returns the TourRecord for rawID. The whole pipeline runs under
// the engine's request deadline.
func (e *Engine) Scrape(ctx context.Context, rawID string) (*TourRecord, error) {
	tourID, err := ValidateTourID(rawID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	log := e.logger.WithField("tour_id", tourID)
	start := time.Now()

	record, err := e.scrape(ctx, tourID)
	e.observer.ObserveStage(StageTotal, time.Since(start), err)

	if err != nil {
		log.WithFields(map[string]interface{}{
			"kind":     string(apperrors.KindOf(err)),
			"duration": time.Since(start).String(),
		}).Warnf("scrape failed: %v", err)
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"tour_url": record.TourURL,
		"duration": time.Since(start).String(),
	}).Info("tour scraped")
	return record, nil
}

func (e *Engine) scrape(ctx context.Context, tourID string) (*TourRecord, error) {
	stageStart := time.Now()
	href, err := e.workers.Do(ctx, func(ctx context.Context) (string, error) {
		return e.resolver.Resolve(ctx, tourID)
	})
	err = resolveError(err)
	e.observer.ObserveStage(StageResolve, time.Since(stageStart), err)
	if err != nil {
		return nil, err
	}

	tourURL, err := e.resolver.TourURL(href)
	if err != nil {
		return nil, err
	}

	stageStart = time.Now()
	page, err := e.fetcher.Fetch(ctx, tourURL)
	e.observer.ObserveStage(StageFetch, time.Since(stageStart), err)
	if err != nil {
		return nil, err
	}

	stageStart = time.Now()
	record, err := e.extractor.Extract(page, tourURL)
	e.observer.ObserveStage(StageExtract, time.Since(stageStart), err)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// resolveError types the errors the worker pool itself can return
func resolveError(err error) error {
	if err == nil {
		return nil
	}

	var typed *apperrors.Error
	switch {
	case errors.As(err, &typed):
		return err
	case errors.Is(err, utils.ErrWorkerPoolClosed):
		return apperrors.Wrap(apperrors.KindPoolClosed, "resolve tour", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.Wrap(apperrors.KindResolutionTimeout, "resolve tour", err)
	default:
		return apperrors.Wrap(apperrors.KindInternal, "resolve tour", err)
	}
}

// Close stops the engine's workers. The browser pool is owned by the caller.
func (e *Engine) Close() {
	e.workers.Close()
}
