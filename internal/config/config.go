package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr      string
	PostgresDSN   string
	MongoURI      string
	RedisAddr     string
	RabbitURL     string
	JWTSecret     string
	HoldTTL       time.Duration
	SweepInterval time.Duration
	OTLPEndpoint  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	holdTTL, _ := time.ParseDuration(os.Getenv("HOLD_TTL"))
	if holdTTL == 0 {
		holdTTL = 15 * time.Minute
	}
	sweep, _ := time.ParseDuration(os.Getenv("SWEEP_INTERVAL"))
	if sweep == 0 {
		sweep = 30 * time.Second
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	return &Config{
		HTTPAddr:      addr,
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RabbitURL:     os.Getenv("RABBIT_URL"),
		JWTSecret:     secret,
		HoldTTL:       holdTTL,
		SweepInterval: sweep,
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
