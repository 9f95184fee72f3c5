package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	limiter "github.com/ulule/limiter/v3"
)

// Notification sinks selectable with NOTIFICATION_SINK.
const (
	SinkKafka  = "kafka"
	SinkSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Local projection and notification delivery.
	DBPath           string
	NotificationSink string

	// Fan-out workers.
	FanoutWorkers   int
	FanoutQueueSize int

	RouteCacheSize      int
	DefaultBufferMeters int

	// RateLimit applies per client to the /api routes. Clients are keyed by
	// the peer address unless TrustForwardHeader is set, in which case
	// X-Forwarded-For and X-Real-IP are honoured. Enable it only behind a
	// proxy that overwrites those headers.
	RateLimit          limiter.Rate
	TrustForwardHeader bool
}

// LoadDotEnv seeds the environment from .env files. Variables that are
// already set win. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	workers, err := parseInt("FANOUT_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	queueSize, err := parseInt("FANOUT_QUEUE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("ROUTE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	bufferMeters, err := parseInt("DEFAULT_BUFFER_METERS", 200)
	if err != nil {
		return nil, err
	}

	rate, err := limiter.NewRateFromFormatted(sharedcfg.EnvOrDefault("RATE_LIMIT", "120-M"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT: %w", err)
	}
	trustForward, err := parseBool("TRUST_FORWARD_HEADER", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "rangeguard-events"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "rangeguard-notifications"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "zone-conflict-notifier"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DBPath:           sharedcfg.EnvOrDefault("DB_PATH", "rangeguard.db"),
		NotificationSink: sharedcfg.EnvOrDefault("NOTIFICATION_SINK", SinkKafka),

		FanoutWorkers:   workers,
		FanoutQueueSize: queueSize,

		RouteCacheSize:      cacheSize,
		DefaultBufferMeters: bufferMeters,

		RateLimit:          rate,
		TrustForwardHeader: trustForward,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if c.KafkaSinkTopic == "" && c.NotificationSink == SinkKafka {
		return errors.New("KAFKA_SINK_TOPIC is required when NOTIFICATION_SINK is kafka")
	}
	if c.NotificationSink != SinkKafka && c.NotificationSink != SinkSQLite {
		return fmt.Errorf("NOTIFICATION_SINK must be %q or %q", SinkKafka, SinkSQLite)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH is required")
	}
	if c.FanoutWorkers <= 0 {
		return errors.New("FANOUT_WORKERS must be positive")
	}
	if c.FanoutQueueSize <= 0 {
		return errors.New("FANOUT_QUEUE_SIZE must be positive")
	}
	if c.RouteCacheSize <= 0 {
		return errors.New("ROUTE_CACHE_SIZE must be positive")
	}
	if c.DefaultBufferMeters < 0 {
		return errors.New("DEFAULT_BUFFER_METERS must not be negative")
	}
	return nil
}
