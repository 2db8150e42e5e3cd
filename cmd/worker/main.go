package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/prodvault/pkg/app"
	"github.com/ghuser/prodvault/pkg/config"
	"github.com/ghuser/prodvault/pkg/database"
	"github.com/ghuser/prodvault/pkg/events"
	"github.com/ghuser/prodvault/pkg/logger"
	"github.com/ghuser/prodvault/pkg/metrics"
	catalogEvents "github.com/ghuser/prodvault/services/catalog/domain/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)
	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close() //nolint:errcheck
	log.Info("database connected")

	eventBus, err := events.NewEventBus(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	appConfig := &app.Application{
		Db:       db,
		Logger:   log,
		EventBus: eventBus,
		Metrics:  metrics.New(cfg.ServiceName + "-worker"),
	}

	if err := registerSubscribers(ctx, appConfig); err != nil {
		log.Error("failed to register subscribers", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	// EventBus.Close() (via defer) waits for in-flight handlers.
	log.Info("worker stopped")
}

// registerSubscribers wires all product lifecycle event handlers.
func registerSubscribers(ctx context.Context, a *app.Application) error {
	topics := []string{
		catalogEvents.TopicProductCreated,
		catalogEvents.TopicProductUpdated,
		catalogEvents.TopicProductDeleted,
	}
	for _, topic := range topics {
		errCh, err := a.EventBus.Subscribe(ctx, topic, handleProductEvent(a, topic))
		if err != nil {
			return err
		}
		// Drain subscriber errors in background so the channel never blocks.
		go func(topic string) {
			for err := range errCh {
				a.Logger.ErrorContext(ctx, "subscriber error", "topic", topic, "error", err)
			}
		}(topic)
	}
	a.Logger.Info("event subscribers registered", "topics", topics)
	return nil
}

// handleProductEvent returns the audit handler for one lifecycle topic.
// Handlers must be idempotent since the EventBus retries on failure.
func handleProductEvent(a *app.Application, topic string) func(context.Context, *message.Message) error {
	return func(ctx context.Context, msg *message.Message) error {
		var evt struct {
			ProductID int64 `json:"product_id"`
			CreatorID int64 `json:"creator_id"`
		}
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return err
		}
		a.Logger.InfoContext(ctx, "product lifecycle event",
			"topic", topic,
			"product_id", evt.ProductID,
			"creator_id", evt.CreatorID,
			"message_id", msg.UUID,
		)
		return nil
	}
}
