package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/showseat/boxoffice/internal/adapters/postgres"
	"github.com/showseat/boxoffice/internal/observability"
)

// Broker is satisfied by the rabbit publisher.
type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

// Publisher drains the transactional outbox into the message broker.
// Delivery is at-least-once: a crash between Publish and MarkPublished
// re-sends the record, and consumers dedupe on MessageId.
type Publisher struct {
	repo      *postgres.Repository
	broker    Broker
	logger    observability.Logger
	interval  time.Duration
	batchSize int
}

func NewPublisher(repo *postgres.Repository, broker Broker, logger observability.Logger, interval time.Duration) *Publisher {
	return &Publisher{
		repo:      repo,
		broker:    broker,
		logger:    logger,
		interval:  interval,
		batchSize: 100,
	}
}

// Run polls until the context is canceled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.drain(ctx); err != nil {
				p.logger.WithError(err).Error("outbox drain failed")
			}
			if lag, err := p.repo.OldestUnpublishedAge(ctx, time.Now()); err == nil {
				observability.OutboxLag.Set(lag.Seconds())
			}
		}
	}
}

func (p *Publisher) drain(ctx context.Context) error {
	for {
		records, err := p.repo.GetUnpublishedOutbox(ctx, p.batchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		for _, rec := range records {
			msg := amqp.Publishing{
				ContentType: "application/json",
				MessageId:   rec.DedupeKey,
				Timestamp:   rec.CreatedAt,
				Type:        rec.EventType,
				Body:        rec.Payload,
			}
			if err := p.broker.Publish(ctx, rec.EventType, msg); err != nil {
				// Leave the record NEW; the next tick retries it.
				return err
			}
			if err := p.repo.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
				p.logger.WithError(err).WithField("outbox_id", rec.ID).Warn("mark published failed")
			}
		}
		if len(records) < p.batchSize {
			return nil
		}
	}
}
