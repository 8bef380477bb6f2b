package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"

	mongoadapter "github.com/showseat/boxoffice/internal/adapters/mongo"
	"github.com/showseat/boxoffice/internal/adapters/postgres"
	"github.com/showseat/boxoffice/internal/adapters/rabbit"
	redisadapter "github.com/showseat/boxoffice/internal/adapters/redis"
	"github.com/showseat/boxoffice/internal/config"
	"github.com/showseat/boxoffice/internal/domain"
	"github.com/showseat/boxoffice/internal/observability"
	"github.com/showseat/boxoffice/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cache := redisadapter.NewCache(redisClient)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	pub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	var auditor service.Auditor = service.NopAuditor{}
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		auditor = mongoadapter.NewAuditLogger(mongoClient.Database("boxoffice"), logger)
	}

	worker := NewExpiryWorker(repo, cache, pub, auditor, logger, cfg.HoldTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, cfg.SweepInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutdown expiry worker")
}

// ExpiryWorker flips lapsed ACTIVE holds to EXPIRED and auto-cancels
// CREATED orders nobody paid for. Both sweeps are idempotent, so a
// crashed tick just redoes less work on the next one.
type ExpiryWorker struct {
	repo    *postgres.Repository
	cache   *redisadapter.Cache
	pub     *rabbit.Publisher
	auditor service.Auditor
	logger  observability.Logger
	holdTTL time.Duration
}

func NewExpiryWorker(repo *postgres.Repository, cache *redisadapter.Cache, pub *rabbit.Publisher, auditor service.Auditor, logger observability.Logger, holdTTL time.Duration) *ExpiryWorker {
	return &ExpiryWorker{repo: repo, cache: cache, pub: pub, auditor: auditor, logger: logger, holdTTL: holdTTL}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.sweepHolds(ctx, now)
			w.sweepOrders(ctx, now)
		}
	}
}

func (w *ExpiryWorker) sweepHolds(ctx context.Context, now time.Time) {
	holds, err := w.repo.SweepExpiredHolds(ctx, now)
	if err != nil {
		w.logger.WithError(err).Error("hold sweep failed")
		return
	}
	for _, hold := range holds {
		w.retry(ctx, func() error { return w.reclaim(ctx, hold) })
	}
}

func (w *ExpiryWorker) reclaim(ctx context.Context, hold domain.Hold) error {
	// The redis locks expire on their own TTL; deleting them early just
	// frees the seats for the fast path sooner. The release is keyed on
	// the hold token, so a lock already re-acquired by a newer hold is
	// left alone.
	for _, seatID := range hold.SeatIDs {
		if err := w.cache.ReleaseSeat(ctx, hold.ShowtimeID, seatID, hold.Token); err != nil {
			w.logger.WithError(err).Warn("seat lock release failed")
		}
	}
	if err := w.cache.InvalidateSeatMap(ctx, hold.ShowtimeID); err != nil {
		w.logger.WithError(err).Warn("seat map invalidation failed")
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"hold_token":  hold.Token,
		"showtime_id": hold.ShowtimeID,
		"seat_ids":    hold.SeatIDs,
	})
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        payload,
	}
	if err := w.pub.Publish(ctx, "hold.expired", msg); err != nil {
		return err
	}

	observability.HoldsReclaimed.Inc()
	w.auditor.Record(ctx, domain.AuditEntry{
		Kind:       "hold.expired",
		UserID:     hold.UserID,
		ShowtimeID: hold.ShowtimeID,
		HoldToken:  hold.Token,
		SeatIDs:    hold.SeatIDs,
		At:         time.Now(),
	})
	return nil
}

func (w *ExpiryWorker) sweepOrders(ctx context.Context, now time.Time) {
	orders, err := w.repo.SweepStaleOrders(ctx, now.Add(-w.holdTTL))
	if err != nil {
		w.logger.WithError(err).Error("order sweep failed")
		return
	}
	for _, order := range orders {
		observability.OrdersAutoCanceled.Inc()
		if err := w.cache.InvalidateSeatMap(ctx, order.ShowtimeID); err != nil {
			w.logger.WithError(err).Warn("seat map invalidation failed")
		}
		w.auditor.Record(ctx, domain.AuditEntry{
			Kind:       "order.auto_canceled",
			UserID:     order.UserID,
			ShowtimeID: order.ShowtimeID,
			OrderID:    order.ID,
			At:         time.Now(),
		})
		w.logger.WithField("order_id", order.ID).Info("stale order canceled")
	}
}

func (w *ExpiryWorker) retry(ctx context.Context, fn func() error) {
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return
		}
		w.logger.WithError(err).Warn("retrying")
		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
	w.logger.Error("giving up after retries")
}
