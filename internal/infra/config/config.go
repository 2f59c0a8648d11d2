package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"

	NotifierLog   = "log"
	NotifierKafka = "kafka"
	NotifierRedis = "redis"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env              string
	HTTPAddr         string
	StorageDriver    string
	DatabaseURL      string
	MigrationsPath   string
	MongoURI         string
	MongoDB          string
	Notifier         string
	KafkaBrokers     []string
	KafkaTopicPrefix string
	RedisAddr        string
	RedisChannel     string
	IdempotencyStore string
	IdempotencyTTL   time.Duration
	JWTSecret        string
	ListingsFixtures string
	RetryBackoff     []time.Duration
	NotifyQueueSize  int
	RateLimitRPS     float64
	RateLimitBurst   int
	ShutdownTimeout  time.Duration
	AutoMigrate      bool
}

// Load reads an optional .env file and parses configuration from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses configuration from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", "file://migrations"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "grabit"),
		Notifier:         strings.ToLower(getEnv("NOTIFIER", NotifierLog)),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisChannel:     getEnv("REDIS_CHANNEL", "booking_updates"),
		IdempotencyStore: strings.ToLower(getEnv("IDEMPOTENCY_STORE", DriverMemory)),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		ListingsFixtures: getEnv("LISTINGS_FIXTURES", ""),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.AutoMigrate, err = parseBoolEnv("AUTO_MIGRATE", true); err != nil {
		return Config{}, err
	}
	if cfg.NotifyQueueSize, err = parseIntEnv("NOTIFY_QUEUE_SIZE", 256); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = parseIntEnv("RATE_LIMIT_BURST", 20); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = parseFloatEnv("RATE_LIMIT_RPS", 10); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "20ms,100ms,500ms")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDev reports whether human-friendly output should be used.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "local", "development":
		return true
	}
	return false
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORAGE_DRIVER=%s", c.StorageDriver)
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for STORAGE_DRIVER=%s", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.Notifier {
	case NotifierLog, NotifierRedis:
	case NotifierKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for NOTIFIER=%s", c.Notifier)
		}
	default:
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}

	switch c.IdempotencyStore {
	case DriverMemory, DriverRedis:
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for IDEMPOTENCY_STORE=%s", c.IdempotencyStore)
		}
	default:
		return fmt.Errorf("unknown IDEMPOTENCY_STORE %q", c.IdempotencyStore)
	}

	if c.JWTSecret == "" && !c.IsDev() {
		return fmt.Errorf("JWT_SECRET is required outside dev")
	}
	if c.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
