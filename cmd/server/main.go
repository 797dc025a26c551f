// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bloodlink/internal/api"
	"bloodlink/internal/common/aws"
	"bloodlink/internal/common/config"
	"bloodlink/internal/common/database"
	"bloodlink/internal/common/logger"
	"bloodlink/internal/common/observability"
	"bloodlink/internal/geo"
	"bloodlink/internal/notify"
	"bloodlink/internal/queue"
	"bloodlink/internal/ratelimit"
	"bloodlink/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification service...",
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Warn("elasticsearch unavailable, directory search falls back to SQL", zap.Error(err))
			esClient = nil
		} else {
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Init AWS delivery clients ---
	var snsClient *aws.SNSClient
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err = aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		zapLog.Info("SNS client initialized")
	}

	var sesClient *aws.SESClient
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err = aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		zapLog.Info("SES client initialized")
	}

	// --- Stores ---
	jobStore := store.NewJobStore(pg.DB)
	hospitalStore := store.NewHospitalStore(pg.DB)
	stockStore := store.NewStockStore(pg.DB)
	userStore := store.NewUserStore(pg.DB)

	locator := geo.NewLocator(hospitalStore, log)

	// --- Channel senders ---
	var smsAPI notify.SNSAPI
	if snsClient != nil {
		smsAPI = snsClient
	}
	smsSender := notify.NewSMSSender(
		smsAPI,
		userStore,
		cfg.Integrations.AWS.SNS.Enabled,
		cfg.Integrations.AWS.SNS.DefaultSMSSenderID,
		cfg.Notifications.DefaultCountryCode,
		cfg.Notifications.SMSHospitalLimit,
		log,
	)

	var sesAPI notify.SESAPI
	if sesClient != nil {
		sesAPI = sesClient
	}
	emailSender := notify.NewEmailSender(sesAPI, cfg.Integrations, log)

	// --- Queue and orchestrator ---
	orchOpts := notify.OrchestratorOptions{
		MaxHospitals: cfg.Notifications.MaxHospitals,
		MaxRetries:   cfg.Notifications.Retry.MaxRetries,
		BaseDelay:    time.Duration(cfg.Notifications.Retry.BaseDelaySeconds) * time.Second,
	}

	var dispatcher queue.Dispatcher
	var worker *queue.Worker

	if cfg.Notifications.Queue.Workers > 0 {
		redisDispatcher := queue.NewRedisDispatcher(
			redisClient.Client,
			cfg.Notifications.Queue.ReadyKey,
			cfg.Notifications.Queue.DelayedKey,
		)
		orchestrator := notify.NewOrchestrator(
			jobStore, locator, stockStore, userStore,
			smsSender, emailSender, redisDispatcher,
			orchOpts, log, obs,
		)
		worker = queue.NewWorker(
			redisDispatcher, orchestrator,
			cfg.Notifications.Queue.Workers,
			time.Duration(cfg.Notifications.Queue.PollIntervalMS)*time.Millisecond,
			log,
		)
		worker.Start(ctx)
		dispatcher = redisDispatcher
	} else {
		// Degraded mode: workers disabled, submissions process inline.
		syncDispatcher := queue.NewSyncDispatcher(nil, log)
		orchestrator := notify.NewOrchestrator(
			jobStore, locator, stockStore, userStore,
			smsSender, emailSender, syncDispatcher,
			orchOpts, log, obs,
		)
		syncDispatcher.Bind(orchestrator)
		dispatcher = syncDispatcher
		zapLog.Info("queue workers disabled, processing jobs synchronously")
	}

	// --- HTTP API ---
	limiter := ratelimit.New(
		redisClient.Client,
		cfg.Notifications.RateLimit.MaxPerWindow,
		time.Duration(cfg.Notifications.RateLimit.WindowSeconds)*time.Second,
		log,
	)

	search := api.NewDirectorySearch(esClient, hospitalStore, log)
	handler := api.NewHandler(
		jobStore, limiter, dispatcher, locator, stockStore, search,
		cfg.Notifications, log,
	)
	handler.SetHealthChecks(
		api.HealthCheck{Name: "postgres", Check: pg.Ping},
		api.HealthCheck{Name: "redis", Check: redisClient.Ping},
	)
	server := api.NewServer(cfg.Server, handler, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// --- Graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			zapLog.Error("http server error", zap.Error(err))
		}
	}

	shutdownTimeout := time.Duration(cfg.Notifications.Queue.ShutdownTimeoutS) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	if worker != nil {
		worker.Stop(shutdownTimeout)
	}

	zapLog.Info("notification service stopped")
}
