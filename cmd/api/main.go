package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/showseat/boxoffice/internal/adapters/mongo"
	"github.com/showseat/boxoffice/internal/adapters/postgres"
	"github.com/showseat/boxoffice/internal/adapters/rabbit"
	redisadapter "github.com/showseat/boxoffice/internal/adapters/redis"
	"github.com/showseat/boxoffice/internal/config"
	httphandler "github.com/showseat/boxoffice/internal/http"
	"github.com/showseat/boxoffice/internal/idempotency"
	"github.com/showseat/boxoffice/internal/observability"
	"github.com/showseat/boxoffice/internal/payment"
	"github.com/showseat/boxoffice/internal/ratelimit"
	"github.com/showseat/boxoffice/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)
	if err := repo.Bootstrap(context.Background()); err != nil {
		log.Fatalf("failed to bootstrap schema: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	auditor := mongoadapter.NewAuditLogger(mongoClient.Database("boxoffice"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
	limiter := ratelimit.NewRateLimiter(cache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	if _, err := rabbit.NewPublisher(rabbitConn); err != nil {
		log.Fatalf("failed to declare exchange: %v", err)
	}

	holdSvc := service.NewHoldService(repo, repo, cache, auditor, logger, cfg.HoldTTL)
	orderSvc := service.NewOrderService(repo, cache, auditor, payment.MockProvider{}, logger)
	seatSvc := service.NewSeatService(repo, cache)

	handlers := httphandler.NewHandlers(holdSvc, orderSvc, seatSvc, repo, repo, auditor, cfg.JWTSecret, logger)
	router := httphandler.NewRouter(httphandler.RouterDeps{
		Handlers:    handlers,
		JWTSecret:   cfg.JWTSecret,
		Limiter:     limiter,
		Idempotency: idemp,
		Logger:      logger,
		Ready: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	logger.Info("server exiting")
}
