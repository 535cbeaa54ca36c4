package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/phamtq/msg-delivery/internal/config"
	"github.com/phamtq/msg-delivery/internal/delivery"
	"github.com/phamtq/msg-delivery/internal/gateway"
	"github.com/phamtq/msg-delivery/shared/logger"
	"github.com/phamtq/msg-delivery/shared/rabbitmq"
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

	defaultConfigPath := os.Getenv("DELIVERY_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/delivery-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateDeliveryConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting delivery service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Duration("rate_limit_time", cfg.Delivery.RateLimitTime.Std()),
	)

	channel := gateway.NewClient(&gateway.Config{
		BaseURL: cfg.Gateway.URL,
	}, appLogger.Logger)

	scheduler := delivery.NewScheduler(cfg.Delivery.RateLimitTime.Std(), nil)
	processor := delivery.NewProcessor(channel, appLogger.Logger)
	consumer := delivery.NewConsumer(appLogger.Logger, scheduler, processor, nil)

	brokerConfig := &rabbitmq.Config{
		URL:               cfg.RabbitMQ.URL,
		Queue:             cfg.RabbitMQ.Queue,
		Heartbeat:         cfg.RabbitMQ.Connection.Heartbeat.Std(),
		ConnectionTimeout: cfg.RabbitMQ.Connection.ConnectionTimeout.Std(),
	}

	supervisor := delivery.NewSupervisor(&delivery.SupervisorConfig{
		Logger:   appLogger.Logger,
		Consumer: consumer,
		Sessions: func() (delivery.BrokerSession, error) {
			return rabbitmq.Dial(brokerConfig, appLogger.Logger)
		},
		ServiceName:    cfg.App.Name,
		ReconnectDelay: cfg.Delivery.ReconnectDelay.Std(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(done)
	}()

	appLogger.Info("Delivery service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	appLogger.Info("Received signal, shutting down gracefully",
		slog.String("signal", sig.String()),
	)

	cancel()

	select {
	case <-done:
		appLogger.Info("Supervisor stopped gracefully")
	case <-time.After(30 * time.Second):
		appLogger.Warn("Supervisor shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Delivery service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}
