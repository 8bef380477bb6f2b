package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/showseat/boxoffice/internal/adapters/rabbit"
	"github.com/showseat/boxoffice/internal/config"
	"github.com/showseat/boxoffice/internal/observability"
)

// Consumes order and hold lifecycle events and delivers notifications.
// The shipped sink is the structured log; a mail or push gateway hangs
// off the same queue.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "boxoffice.notifications", "order.*")
	if err != nil {
		log.Fatalf("failed to set up consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	go func() {
		seen := make(map[string]struct{})
		for d := range deliveries {
			// At-least-once delivery from the outbox; MessageId dedupes.
			if _, dup := seen[d.MessageId]; dup {
				d.Ack(false)
				continue
			}
			seen[d.MessageId] = struct{}{}

			var payload map[string]interface{}
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				logger.WithError(err).Warn("undecodable event dropped")
				d.Nack(false, false)
				continue
			}
			logger.WithFields(map[string]interface{}{
				"event":    d.RoutingKey,
				"order_id": payload["order_id"],
			}).Info("notification sent")
			d.Ack(false)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutdown notifier")
}
