package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"server/internal/adapter/repo"
	"server/internal/dispatch"
	"server/internal/enhance"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/metrics"
	"server/internal/pipeline"
	"server/internal/providers/textgen"
	"server/internal/rasterize"
	"server/internal/render"
	"server/internal/storage"
	"server/internal/tasklock"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	documents := repo.NewDocumentRepository(pool)

	// A configured but unreachable lock store is fatal: silently degrading
	// to process-local locking would hide duplicate work in production.
	var locker tasklock.Locker
	if cfg.RedisAddr != "" {
		rdb, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: redis connection failed")
		}
		defer rdb.Close()
		locker = tasklock.NewRedisLocker(rdb, logger)
	} else {
		logger.Warn().Msg("api: REDIS_ADDR not set, using in-process task locks")
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
		logger.Fatal().Err(err).Msg("api: textgen client failed")
	}
	var enhancer enhance.TextEnhancer = enhance.NewGeminiEnhancer(textgenClient)
	if !enhancer.Available() {
		logger.Warn().Msg("api: TEXTGEN_API_KEY not set, enhancement disabled")
		enhancer = enhance.NoopEnhancer{}
	}

	renderer, err := render.NewHTMLRenderer()
	if err != nil {
		logger.Fatal().Err(err).Msg("api: renderer failed")
	}

	rasterizer, err := rasterize.NewChromiumClient(rasterize.Options{
		BaseURL:    cfg.RasterizerURL,
		HTTPClient: &http.Client{Timeout: cfg.RasterizerTimeout},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: rasterizer client failed")
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: storage failed")
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

	dispatcher := dispatch.NewPoolDispatcher(p, cfg.DispatchWorkers, 0, logger)

	app := handlers.NewApp(p, dispatcher, logger)
	router := httpapi.NewRouter(app, logger, registry)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	dispatcher.Close()
	logger.Info().Msg("server stopped")
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
