package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/enhance"
	"server/internal/infra"
	"server/internal/metrics"
	"server/internal/pipeline"
	"server/internal/providers/textgen"
	"server/internal/rasterize"
	"server/internal/render"
	"server/internal/storage"
	"server/internal/tasklock"
)

// The worker claims queued documents straight from the store and runs the
// generation pipeline. All clients are built once at bootstrap and reused
// for every document.
type worker struct {
	repo      domain.DocumentRepository
	pipeline  *pipeline.Pipeline
	logger    infra.Logger
	pollEvery time.Duration
	staleTTL  time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	documents := repo.NewDocumentRepository(pool)

	// Workers share documents across processes; a configured but dead lock
	// store must stop the process rather than degrade to local locking.
	var locker tasklock.Locker
	if cfg.RedisAddr != "" {
		rdb, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: redis connection failed")
		}
		defer rdb.Close()
		locker = tasklock.NewRedisLocker(rdb, logger)
	} else {
		logger.Warn().Msg("worker: REDIS_ADDR not set, using in-process task locks")
		locker = tasklock.NewMemoryLocker()
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	textgenClient, err := textgen.NewClient(textgen.Options{
		APIKey:  cfg.TextGenAPIKey,
		BaseURL: cfg.TextGenBaseURL,
		Model:   cfg.TextGenModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: textgen client failed")
	}
	var enhancer enhance.TextEnhancer = enhance.NewGeminiEnhancer(textgenClient)
	if !enhancer.Available() {
		logger.Warn().Msg("worker: TEXTGEN_API_KEY not set, enhancement disabled")
		enhancer = enhance.NoopEnhancer{}
	}

	renderer, err := render.NewHTMLRenderer()
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: renderer failed")
	}

	rasterizer, err := rasterize.NewChromiumClient(rasterize.Options{
		BaseURL:    cfg.RasterizerURL,
		HTTPClient: &http.Client{Timeout: cfg.RasterizerTimeout},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: rasterizer client failed")
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: storage failed")
	}
	defer closeStore()

	p := pipeline.New(pipeline.Options{
		Repo:            documents,
		Enhancer:        enhance.NewOrchestrator(enhancer, logger),
		Renderer:        renderer,
		Rasterizer:      rasterizer,
		Store:           store,
		Locker:          locker,
		Metrics:         m,
		Logger:          logger,
		LockTTL:         cfg.LockTTL,
		StageTimeout:    cfg.StageTimeout,
		ProduceAttempts: cfg.ProduceAttempts,
		ProduceDelay:    cfg.ProduceRetryDelay,
	})

	w := &worker{
		repo:      documents,
		pipeline:  p,
		logger:    logger,
		pollEvery: cfg.WorkerPollEvery,
		staleTTL:  cfg.StaleAfter,
	}

	go serveMetrics(cfg.WorkerMetricsPort, registry, logger)
	go w.sweepStale(ctx)

	if err := w.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// run polls for queued documents, draining the backlog before sleeping.
func (w *worker) run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	w.logger.Info().Dur("poll_every", w.pollEvery).Msg("worker: started")
	for {
		if err := w.drain(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *worker) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := w.repo.ClaimQueued(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			w.logger.Error().Err(err).Msg("worker: claim failed")
			return nil
		}
		w.logger.Info().Str("document_id", doc.ID).Msg("worker: claimed document")
		if err := w.pipeline.RunClaimed(ctx, doc); err != nil {
			w.logger.Error().Err(err).Str("document_id", doc.ID).Msg("worker: run failed")
		}
	}
}

// sweepStale errors out documents stuck in processing after a crash so
// every document reaches a terminal state.
func (w *worker) sweepStale(ctx context.Context) {
	ticker := time.NewTicker(w.staleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.repo.FailStale(ctx, time.Now().Add(-w.staleTTL))
			if err != nil {
				w.logger.Error().Err(err).Msg("worker: stale sweep failed")
				continue
			}
			if n > 0 {
				w.logger.Warn().Int64("documents", n).Msg("worker: failed stale documents")
			}
		}
	}
}

func serveMetrics(port string, registry *prometheus.Registry, logger infra.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error().Err(err).Msg("worker: metrics listener failed")
	}
}

func buildStore(ctx context.Context, cfg *infra.Config) (storage.ObjectStore, func(), error) {
	if cfg.StorageBackend == "gcs" {
		gcsStore, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.SignedURLTTL)
		if err != nil {
			return nil, nil, err
		}
		return gcsStore, func() { _ = gcsStore.Close() }, nil
	}
	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		return nil, nil, err
	}
	return fileStore, func() {}, nil
}
