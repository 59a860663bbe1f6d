package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":50051"`

	MySQLDSN          string        `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/restaurant?parseTime=true"`
	MySQLMaxOpenConns int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"50"`
	MySQLMaxIdleConns int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"25"`
	MySQLConnLifetime time.Duration `env:"MYSQL_CONN_LIFETIME" envDefault:"5m"`
	MigrateOnStart    bool          `env:"MIGRATE_ON_START" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"100"`

	// Kitchen notifications are disabled when the URL is empty.
	AMQPURL   string `env:"AMQP_URL"`
	AMQPQueue string `env:"AMQP_QUEUE" envDefault:"kitchen.orders"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	WorkerCount    int           `env:"CHECKOUT_WORKERS" envDefault:"10"`
	QueueSize      int           `env:"CHECKOUT_QUEUE_SIZE" envDefault:"10000"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	HealthInterval  time.Duration `env:"HEALTH_INTERVAL" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.WorkerCount <= 0 {
		return Config{}, fmt.Errorf("CHECKOUT_WORKERS must be positive, got %d", cfg.WorkerCount)
	}
	return cfg, nil
}
