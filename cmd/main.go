package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/vhvplatform/go-billing-notifier/internal/billing"
	"github.com/vhvplatform/go-billing-notifier/internal/channel"
	"github.com/vhvplatform/go-billing-notifier/internal/compiler"
	"github.com/vhvplatform/go-billing-notifier/internal/consumer"
	"github.com/vhvplatform/go-billing-notifier/internal/domain"
	"github.com/vhvplatform/go-billing-notifier/internal/engine"
	"github.com/vhvplatform/go-billing-notifier/internal/handler"
	"github.com/vhvplatform/go-billing-notifier/internal/metrics"
	"github.com/vhvplatform/go-billing-notifier/internal/middleware"
	"github.com/vhvplatform/go-billing-notifier/internal/paylink"
	"github.com/vhvplatform/go-billing-notifier/internal/queue"
	"github.com/vhvplatform/go-billing-notifier/internal/repository"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/config"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/logger"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/mongodb"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/rabbitmq"
)

func main() {
	// Initialize logger
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting Billing Notifier...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	// Initialize MongoDB
	mongoClient, err := mongodb.NewMongoClient(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())

	// Initialize RabbitMQ
	rabbitMQClient, err := rabbitmq.NewRabbitMQClient(cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", "error", err)
	}
	defer rabbitMQClient.Close()

	// Initialize config store
	configRepo := repository.NewConfigRepository(mongoClient)
	if err := configRepo.EnsureIndexes(context.Background()); err != nil {
		log.Error("Failed to ensure indexes", "error", err)
	}

	// Initialize collaborator clients
	billingClient := billing.NewClient(cfg.Billing.BaseURL)
	paylinkClient := paylink.NewClient(cfg.Paylink.BaseURL)
	channelClient := channel.NewClient(cfg.Channel.BaseURL, cfg.Channel.Token)

	jobPublisher, err := queue.NewPublisher(rabbitMQClient, log)
	if err != nil {
		log.Fatal("Failed to initialize job publisher", "error", err)
	}

	// Initialize engine
	ruleCompiler := compiler.New(configRepo, log)
	dispatcher := engine.NewDispatcher(configRepo, billingClient, paylinkClient, jobPublisher, channelClient, log)

	// Initialize HTTP handlers
	configHandler := handler.NewConfigHandler(configRepo, ruleCompiler, log)
	scheduleHandler := handler.NewScheduleHandler(dispatcher, log)

	// Initialize rate limiter
	rateLimiter := middleware.NewEnvRateLimiter(cfg.Server.RateLimitPerEnv, cfg.Server.RateLimitBurst)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with rate limiting
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		// Configuration
		v1.GET("/config", configHandler.GetConfig)
		v1.PUT("/config", configHandler.PutConfig)

		// Templates
		templates := v1.Group("/templates")
		{
			templates.POST("/text", configHandler.AddTextTemplate)
			templates.POST("/structured", configHandler.AddStructuredTemplate)
			templates.DELETE("/:id", configHandler.DeleteTemplate)
		}

		// Rules
		rules := v1.Group("/rules")
		{
			rules.GET("/kinds", configHandler.ListKinds)
			rules.POST("", configHandler.AddRule)
			rules.POST("/compile", configHandler.CompileKind)
			rules.PATCH("/:id/toggle", configHandler.ToggleRule)
			rules.DELETE("/:id", configHandler.DeleteRule)
		}

		// Scheduling
		v1.POST("/schedule/subscription/:id", scheduleHandler.ScheduleSubscription)
	}

	// Periodic config gauge refresh; the external worker owns job
	// execution, this only keeps the dashboards honest.
	gaugeCron := cron.New()
	refreshGauges := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, env := range []domain.Environment{domain.EnvironmentProduction, domain.EnvironmentSandbox} {
			envCfg, err := configRepo.Get(ctx, env)
			if err != nil {
				log.Error("Failed to refresh config gauges", "error", err, "environment", env)
				continue
			}
			if envCfg == nil {
				continue
			}
			metrics.ConfigVersion.WithLabelValues(string(env)).Set(float64(envCfg.Version))
			metrics.ConfigRules.WithLabelValues(string(env)).Set(float64(len(envCfg.Rules)))
		}
	}
	if _, err := gaugeCron.AddFunc("@every 1m", refreshGauges); err != nil {
		log.Error("Failed to schedule gauge refresh", "error", err)
	}
	gaugeCron.Start()
	defer gaugeCron.Stop()

	// Start RabbitMQ consumer
	eventConsumer := consumer.NewEventConsumer(rabbitMQClient, dispatcher, log)
	go func() {
		if err := eventConsumer.Start(); err != nil {
			metrics.ConsumerRestarts.Inc()
			log.Error("Event consumer stopped", "error", err)
		}
	}()

	// Start HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Billing Notifier started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Billing Notifier...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Billing Notifier stopped")
}
