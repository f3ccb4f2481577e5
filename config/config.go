package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const (
	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
	TransportKafka     = "kafka"
)

var (
	ErrInvalidRole      = errors.New("SYNC_ROLE must be KITCHEN or TABLET")
	ErrInvalidTransport = errors.New("SYNC_STREAM_TRANSPORT must be websocket, redis or kafka")
	ErrInvalidLimit     = errors.New("SYNC_PAGE_LIMIT must be between 1 and 200")
)

type Config struct {
	APIBaseURL   string `env:"SYNC_API_BASE_URL" envDefault:"http://localhost:8000"`
	WSBaseURL    string `env:"SYNC_WS_BASE_URL" envDefault:"ws://localhost:8000"`
	RestaurantID string `env:"SYNC_RESTAURANT_ID" envDefault:"rst_001"`
	Role         string `env:"SYNC_ROLE" envDefault:"KITCHEN"`
	Transport    string `env:"SYNC_STREAM_TRANSPORT" envDefault:"websocket"`

	RedisAddr    string   `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"restaurant-events"`

	HTTPAddr       string        `env:"SYNC_HTTP_ADDR" envDefault:":8090"`
	PageLimit      int           `env:"SYNC_PAGE_LIMIT" envDefault:"50"`
	RequestTimeout time.Duration `env:"SYNC_REQUEST_TIMEOUT" envDefault:"5s"`

	ReconnectInitial    time.Duration `env:"SYNC_RECONNECT_INITIAL" envDefault:"1s"`
	ReconnectMax        time.Duration `env:"SYNC_RECONNECT_MAX" envDefault:"30s"`
	ReconnectMaxRetries int           `env:"SYNC_RECONNECT_MAX_RETRIES" envDefault:"0"`

	// GuestOrderingURL is encoded into table QR codes after substituting
	// {restaurant} and {table}.
	GuestOrderingURL string `env:"SYNC_GUEST_ORDERING_URL" envDefault:"http://localhost:3000/order?restaurant={restaurant}&table={table}"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	return cfg
}

func (c Config) Validate() error {
	switch c.Role {
	case "KITCHEN", "TABLET":
	default:
		return ErrInvalidRole
	}
	switch c.Transport {
	case TransportWebSocket, TransportRedis, TransportKafka:
	default:
		return ErrInvalidTransport
	}
	if c.PageLimit < 1 || c.PageLimit > 200 {
		return ErrInvalidLimit
	}
	return nil
}

func MustInitRedis(cfg Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	return client
}
