// File: classbridge/main.go
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"classbridge/config"
	"classbridge/cron"
	"classbridge/database"
	relationRepo "classbridge/database/repository/relation"
	userRepoPkg "classbridge/database/repository/user"
	"classbridge/handlers"
	"classbridge/middleware"
	"classbridge/routes"
	"classbridge/services/calcom"
	"classbridge/services/payment"
	"classbridge/services/reconcile"
	"classbridge/services/tasks"
	"classbridge/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

const (
	refundRetryDelay    = 30 * time.Second
	healthCheckInterval = 30 * time.Second
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := database.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to connect to MongoDB: %v", err)
	}
	db := mongoClient.Database(cfg.DatabaseName)

	redisSettings := utils.RedisSettings{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisQueueDB}
	redisClient, err := utils.NewRedisClient(redisSettings)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to connect to Redis: %v", err)
	}

	// repositories.
	relations, err := relationRepo.NewMongoRelationRepo(db)
	if err != nil {
		logger.Sugar().Fatalf("main: relation repository: %v", err)
	}
	users, err := userRepoPkg.NewMongoUserRepo(db)
	if err != nil {
		logger.Sugar().Fatalf("main: user repository: %v", err)
	}

	// providers.
	httpClient := utils.NewHTTPClient(cfg.HTTPConnectTimeout, cfg.HTTPTimeout)
	calClient := calcom.NewClient(calcom.Config{
		BaseURL:    cfg.CalAPIURL,
		APIKey:     cfg.CalAPIKey,
		APIVersion: cfg.CalAPIVersion,
		HTTPClient: httpClient,
	}, logger.Named("calcom"))
	gateway := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:  cfg.StripeKey,
		HTTPClient: httpClient,
	}, logger.Named("stripe"))

	dispatcher := reconcile.NewDispatcher(relations, users, gateway, cfg.FreeClassSlug, logger.Named("dispatcher"))

	// refund retries.
	asynqClient := asynq.NewClient(redisSettings.AsynqRedisOpt())
	retries := tasks.NewRefundRetryQueue(asynqClient, cfg.RefundRetryMax, refundRetryDelay, logger.Named("retries"))
	worker, err := cron.StartRefundRetryWorker(redisSettings.AsynqRedisOpt(), dispatcher, logger.Named("worker"))
	if err != nil {
		logger.Sugar().Fatalf("main: failed to start refund retry worker: %v", err)
	}

	// reconciliation.
	changes := reconcile.NewChangeLog(reconcile.DefaultChangeLogCapacity, reconcile.DefaultChangeLogRetain)
	detector := reconcile.NewDetector(reconcile.NewSnapshotCache())
	poller := reconcile.NewPoller(calClient, detector, changes, dispatcher, retries, cfg.PollInterval, logger.Named("poller"))
	go poller.Start(ctx)

	monitor := utils.NewHealthMonitor(map[string]utils.Pinger{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}, logger.Named("health"))
	go monitor.Start(ctx, healthCheckInterval)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.ErrorHandler(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))

	webhookHandler := handlers.NewWebhookHandler(dispatcher, retries, changes, cfg.FreeClassSlug, logger.Named("webhook"))
	bookingHandler := handlers.NewBookingHandler(calClient, logger)

	handlerBundle := &handlers.HandlerBundle{
		Webhook:            webhookHandler.HandleWebhook,
		WebhookHealthcheck: webhookHandler.Healthcheck,
		RecentChanges:      webhookHandler.RecentChanges,
		WebhookMiddleware: []gin.HandlerFunc{
			middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin, logger),
			middleware.WebhookSignature(cfg.CalWebhookSecret, logger),
		},
		ConfirmBooking: bookingHandler.ConfirmBooking,
		Health:         handlers.HealthHandler(monitor),
		Auth:           middleware.JWTAuthMiddleware(cfg.JWTSecret, logger.Named("auth")),
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty, operator endpoints will reject every request")
	}
	routes.RegisterRoutes(router, handlerBundle)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.AppPort,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	worker.Shutdown()
	if err := asynqClient.Close(); err != nil {
		logger.Sugar().Warnf("main: closing asynq client: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		logger.Sugar().Warnf("main: closing redis client: %v", err)
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Sugar().Warnf("main: disconnecting MongoDB: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
