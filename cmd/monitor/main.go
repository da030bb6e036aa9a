package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"storewatch/internal/artifact"
	"storewatch/internal/config"
	"storewatch/internal/domain"
	"storewatch/internal/httpapi"
	"storewatch/internal/imagediff"
	"storewatch/internal/logging"
	"storewatch/internal/notify"
	"storewatch/internal/observability"
	"storewatch/internal/pipeline"
	"storewatch/internal/prober"
	"storewatch/internal/render"
	"storewatch/internal/repo"
	"storewatch/internal/repo/memory"
	"storewatch/internal/repo/postgres"
	"storewatch/internal/scheduler"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, "monitor", cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories: postgres when configured, in-memory otherwise.
	var (
		stores repo.StoreRepo
		runs   repo.RunRepo
		pings  repo.PingRepo
		alerts repo.AlertRepo
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_connect", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("postgres_schema", zap.Error(err))
		}
		stores, runs, pings, alerts = pg, pg.Runs(), pg.Pings(), pg.Alerts()
	} else {
		logger.Warn("database_url_empty_using_memory")
		mem := memory.New()
		stores, runs, pings, alerts = mem, mem.Runs(), mem.Pings(), mem.Alerts()
	}

	// Fail fast if the store list is unreadable; a monitor that cannot
	// enumerate its stores has nothing to do.
	if _, err := stores.ListActive(ctx); err != nil {
		logger.Fatal("store_list_unavailable", zap.Error(err))
	}

	// Artifacts.
	var artifacts artifact.Store
	if cfg.S3Endpoint != "" {
		s3, err := artifact.NewS3(artifact.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			logger.Fatal("s3_init", zap.Error(err))
		}
		artifacts = s3
	} else {
		logger.Warn("s3_endpoint_empty_using_memory_artifacts")
		artifacts = artifact.NewMemory()
	}

	if cfg.RenderURL == "" {
		logger.Fatal("render_url_missing")
	}
	renderer := render.NewClient(cfg.RenderURL, cfg.RenderToken)

	// Notification fan-out. Nil channels drop out of the chain.
	var channels notify.Multi
	if slack := notify.NewSlack(cfg.SlackWebhook); slack != nil {
		channels = append(channels, slack)
	}
	kafka := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
	if kafka != nil {
		channels = append(channels, kafka)
		defer kafka.Close()
	}
	var dispatch *notify.Dispatcher
	if len(channels) > 0 {
		dispatch = notify.NewDispatcher(logger, channels)
	}

	metrics := observability.New()

	pipe := &pipeline.Pipeline{
		Logger:    logger,
		Stores:    stores,
		Runs:      runs,
		Alerts:    alerts,
		Renderer:  renderer,
		Artifacts: artifacts,
		Differ: imagediff.NewEngine(
			cfg.DiffThresholdPercent, cfg.PixelMatchThreshold, artifacts, logger),
		Failures:       pipeline.NewFailureTracker(logger, stores, cfg.FailureThreshold),
		Metrics:        metrics,
		CaptureTimeout: cfg.CaptureTimeout,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,

		AdvanceBaselineOnAlert: cfg.AdvanceBaselineOnAlert,
	}
	if dispatch != nil {
		pipe.Dispatch = dispatch
	}

	probe := prober.New(logger, pings, alerts, dispatch, metrics,
		cfg.ProbeTimeout, cfg.PingAlertCooldown)

	visual := scheduler.NewDriver("visual", logger, stores,
		cfg.VisualInterval, cfg.StoreDelay, pipe.CheckStore, metrics)
	ping := scheduler.NewDriver("ping", logger, stores,
		cfg.PingInterval, 0, func(ctx context.Context, s domain.Store) {
			probe.Probe(ctx, s)
		}, metrics)

	api := httpapi.NewServer(logger, stores, runs, alerts, metrics)
	api.RateLimitPerMin = cfg.APIRatePerMin
	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); visual.Run(ctx) }()
	go func() { defer wg.Done(); ping.Run(ctx) }()

	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_serve", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting_down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("api_shutdown", zap.Error(err))
	}
	wg.Wait()
	logger.Info("stopped")
}
