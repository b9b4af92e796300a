package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Osama092/ThreadGen-Backend/internal/api/handler"
	"github.com/Osama092/ThreadGen-Backend/internal/api/router"
	"github.com/Osama092/ThreadGen-Backend/internal/api/storage"
	"github.com/Osama092/ThreadGen-Backend/internal/billing"
	"github.com/Osama092/ThreadGen-Backend/internal/completion"
	"github.com/Osama092/ThreadGen-Backend/internal/config"
	"github.com/Osama092/ThreadGen-Backend/internal/dispatch"
	"github.com/Osama092/ThreadGen-Backend/internal/sse"
	"github.com/Osama092/ThreadGen-Backend/shared/logger"
	"github.com/Osama092/ThreadGen-Backend/shared/postgresql"
	"github.com/Osama092/ThreadGen-Backend/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	store := storage.NewStorage(dbClient)
	hub := sse.NewHub(appLogger.Logger)

	billingClient := billing.NewClient(&billing.Config{
		BaseURL:          cfg.Billing.BaseURL,
		BearerToken:      os.Getenv("PADDLE_API_KEY"),
		Timeout:          cfg.Billing.Timeout,
		DefaultAllowance: cfg.Billing.DefaultAllowance,
		SubbedAllowance:  cfg.Billing.SubbedAllowance,
	}, appLogger.Logger)

	// Completion appliers shared by the queue listeners and the late-reply
	// path of the dispatcher.
	videoApplier := &completion.VideoApplier{Store: store, Notifier: hub, Logger: appLogger.Logger}
	threadApplier := &completion.ThreadApplier{Store: store, Notifier: hub, Logger: appLogger.Logger}
	cloneApplier := &completion.CloneApplier{Store: store, Notifier: hub, Logger: appLogger.Logger}
	campaignApplier := &completion.CampaignApplier{Store: store, Notifier: hub, Logger: appLogger.Logger}

	lateReplies := completion.NewLateReplyHandler(map[string]completion.Applier{
		dispatch.QueueGenerate: videoApplier,
		dispatch.QueueThread:   threadApplier,
		dispatch.QueueCloning:  cloneApplier,
	}, appLogger.Logger)

	dispatcher := dispatch.NewDispatcher(rabbitClient, appLogger.Logger, lateReplies.Handle)

	// Standing listeners on the durable completion queues
	listenerCtx, stopListeners := context.WithCancel(context.Background())
	defer stopListeners()

	listeners := []*completion.Listener{
		completion.NewListener(cfg.Dispatch.RequestCompletionQueue, rabbitClient, videoApplier, appLogger.Logger),
		completion.NewListener(cfg.Dispatch.ThreadCompletionQueue, rabbitClient, threadApplier, appLogger.Logger),
		completion.NewListener(cfg.Dispatch.CloningCompletionQueue, rabbitClient, cloneApplier, appLogger.Logger),
		completion.NewListener(cfg.Dispatch.CampaignCompletionQueue, rabbitClient, campaignApplier, appLogger.Logger),
	}
	for _, l := range listeners {
		if err := l.Start(listenerCtx); err != nil {
			return fmt.Errorf("failed to start completion listener: %w", err)
		}
	}

	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := router.SetupRouter(&handler.Dependencies{
		Logger:     appLogger.Logger,
		Store:      store,
		Dispatcher: dispatcher,
		Billing:    billingClient,
		Hub:        hub,
		Dispatch:   cfg.Dispatch,
	})

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	stopListeners()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		dbClient.Close()
		rabbitClient.Close()
		return err
	}

	dbClient.Close()
	rabbitClient.Close()

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
		PrefetchCount:     cfg.Consumer.PrefetchCount,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
