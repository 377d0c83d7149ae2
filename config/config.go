package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all service configuration.
type Config struct {
	Environment EnvironmentConfig
	Server      ServerConfig
	Logger      LoggerConfig

	// Infrastructure
	Postgres PostgresConfig
	Redis    RedisConfig
	NATS     NATSConfig
	MinIO    MinIOConfig

	// Core
	WebSocket WebSocketConfig
	Stream    StreamConfig
	Alert     AlertConfig
	Fanout    FanoutConfig

	// Authentication & Security
	JWT       JWTConfig
	Cookie    CookieConfig
	Encrypter EncrypterConfig

	// Notification channels
	Discord DiscordConfig
	SMTP    SMTPConfig
}

// EnvironmentConfig is the configuration for environment-aware features
type EnvironmentConfig struct {
	Name string `env:"ENV" envDefault:"production"`
}

// ServerConfig is the configuration for the HTTP server
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
	Mode string `env:"SERVER_MODE" envDefault:"release"`
}

// LoggerConfig is the configuration for the logger
type LoggerConfig struct {
	Level        string `env:"LOGGER_LEVEL" envDefault:"info"`
	Mode         string `env:"LOGGER_MODE" envDefault:"production"`
	Encoding     string `env:"LOGGER_ENCODING" envDefault:"json"`
	ColorEnabled bool   `env:"LOGGER_COLOR_ENABLED" envDefault:"false"`
}

// PostgresConfig is the configuration for PostgreSQL
type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	DBName   string `env:"POSTGRES_DB" envDefault:"logstream"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"50"`
	MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig is the configuration for Redis
// Note: Only standalone mode is supported
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	UseTLS   bool   `env:"REDIS_USE_TLS" envDefault:"false"`

	MaxRetries      int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	MinIdleConns    int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"5"`
	PoolSize        int           `env:"REDIS_POOL_SIZE" envDefault:"50"`
	PoolTimeout     time.Duration `env:"REDIS_POOL_TIMEOUT" envDefault:"4s"`
	ConnMaxIdleTime time.Duration `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// NATSConfig is the configuration for NATS (indexing hand-off and optional fan-out broker)
type NATSConfig struct {
	URL           string        `env:"NATS_URL"`
	Name          string        `env:"NATS_CLIENT_NAME" envDefault:"logstream-srv"`
	IndexSubject  string        `env:"NATS_INDEX_SUBJECT" envDefault:"logstream.index"`
	MaxReconnects int           `env:"NATS_MAX_RECONNECTS" envDefault:"-1"`
	ReconnectWait time.Duration `env:"NATS_RECONNECT_WAIT" envDefault:"2s"`
}

// MinIOConfig is the configuration for raw batch archiving. Archiving is
// disabled when Endpoint is empty.
type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	Region    string `env:"MINIO_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"MINIO_ARCHIVE_BUCKET" envDefault:"logstream-archive"`
}

// WebSocketConfig is the configuration for push connections
type WebSocketConfig struct {
	PingInterval    time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	PongWait        time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	WriteWait       time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	MaxMessageSize  int64         `env:"WS_MAX_MESSAGE_SIZE" envDefault:"8192"`
	ReadBufferSize  int           `env:"WS_READ_BUFFER_SIZE" envDefault:"1024"`
	WriteBufferSize int           `env:"WS_WRITE_BUFFER_SIZE" envDefault:"1024"`
	MaxConnections  int           `env:"WS_MAX_CONNECTIONS" envDefault:"10000"`

	MaxConnectionsPerUser int           `env:"WS_MAX_CONNECTIONS_PER_USER" envDefault:"10"`
	ConnectRateLimit      int           `env:"WS_CONNECT_RATE_LIMIT" envDefault:"20"`
	MessageRateLimit      int           `env:"WS_MESSAGE_RATE_LIMIT" envDefault:"120"`
	RateLimitWindow       time.Duration `env:"WS_RATE_LIMIT_WINDOW" envDefault:"60s"`

	CompressionThreshold int           `env:"WS_COMPRESSION_THRESHOLD" envDefault:"4096"`
	QueueMax             int           `env:"WS_QUEUE_MAX" envDefault:"256"`
	QueueDropThreshold   int           `env:"WS_QUEUE_DROP_THRESHOLD" envDefault:"200"`
	BatchSize            int           `env:"WS_BATCH_SIZE" envDefault:"50"`
	BatchTimeout         time.Duration `env:"WS_BATCH_TIMEOUT" envDefault:"250ms"`
	HeartbeatTimeout     time.Duration `env:"WS_HEARTBEAT_TIMEOUT" envDefault:"90s"`
	ReapInterval         time.Duration `env:"WS_REAP_INTERVAL" envDefault:"30s"`
	AllowedOrigins       []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
}

// StreamConfig is the configuration for source polling loops
type StreamConfig struct {
	PollInterval   time.Duration `env:"STREAM_POLL_INTERVAL" envDefault:"30s"`
	BaseBackoff    time.Duration `env:"STREAM_BASE_BACKOFF" envDefault:"1s"`
	MaxBackoff     time.Duration `env:"STREAM_MAX_BACKOFF" envDefault:"5m"`
	BackoffJitter  float64       `env:"STREAM_BACKOFF_JITTER" envDefault:"0.2"`
	ErrorCeiling   int           `env:"STREAM_ERROR_CEILING" envDefault:"10"`
	AdapterTimeout time.Duration `env:"STREAM_ADAPTER_TIMEOUT" envDefault:"30s"`
	BatchSize      int           `env:"STREAM_BATCH_SIZE" envDefault:"100"`
	PauseRecheck   time.Duration `env:"STREAM_PAUSE_RECHECK" envDefault:"5s"`
	FanoutTimeout  time.Duration `env:"STREAM_FANOUT_TIMEOUT" envDefault:"30s"`
	RestoreOnBoot  bool          `env:"STREAM_RESTORE_ON_BOOT" envDefault:"true"`
}

// AlertConfig is the configuration for the alert engine
type AlertConfig struct {
	RuleCacheTTL    time.Duration `env:"ALERT_RULE_CACHE_TTL" envDefault:"60s"`
	DispatchTimeout time.Duration `env:"ALERT_DISPATCH_TIMEOUT" envDefault:"15s"`
	WebhookRetries  int           `env:"ALERT_WEBHOOK_RETRIES" envDefault:"3"`
}

// FanoutConfig selects the cross-process broker
type FanoutConfig struct {
	Broker  string `env:"FANOUT_BROKER" envDefault:"redis"`
	Channel string `env:"FANOUT_CHANNEL" envDefault:"logstream:fanout"`
	NodeID  string `env:"FANOUT_NODE_ID"`
}

// JWTConfig is the configuration for the JWT
type JWTConfig struct {
	SecretKey string `env:"JWT_SECRET_KEY"`
	Issuer    string `env:"JWT_ISSUER" envDefault:"logstream-srv"`
}

// CookieConfig is the configuration for HttpOnly cookie authentication
type CookieConfig struct {
	Name   string `env:"COOKIE_NAME" envDefault:"logstream_auth_token"`
	Domain string `env:"COOKIE_DOMAIN"`
	Secure bool   `env:"COOKIE_SECURE" envDefault:"true"`
}

// EncrypterConfig holds the AES key used for stored source credentials
type EncrypterConfig struct {
	Key string `env:"ENCRYPT_KEY"`
}

// DiscordConfig is the configuration for the default Discord webhook
type DiscordConfig struct {
	WebhookURL string `env:"DISCORD_WEBHOOK_URL"`
}

// SMTPConfig is the configuration for e-mail notifications. E-mail is
// disabled when Host is empty.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"alerts@logstream.local"`
}

const (
	BrokerRedis = "redis"
	BrokerNATS  = "nats"
	BrokerNone  = "none"
)

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	if k := len(c.Encrypter.Key); k != 0 && k != 16 && k != 24 && k != 32 {
		errs = append(errs, fmt.Errorf("ENCRYPT_KEY must be 16, 24 or 32 bytes, got %d", k))
	}
	switch c.Fanout.Broker {
	case BrokerRedis, BrokerNone:
	case BrokerNATS:
		if c.NATS.URL == "" {
			errs = append(errs, errors.New("FANOUT_BROKER=nats requires NATS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("FANOUT_BROKER must be redis, nats or none, got %q", c.Fanout.Broker))
	}
	if c.Stream.ErrorCeiling < 1 {
		errs = append(errs, errors.New("STREAM_ERROR_CEILING must be at least 1"))
	}
	if c.Stream.BatchSize < 1 {
		errs = append(errs, errors.New("STREAM_BATCH_SIZE must be at least 1"))
	}
	if c.Stream.BaseBackoff <= 0 || c.Stream.MaxBackoff < c.Stream.BaseBackoff {
		errs = append(errs, errors.New("STREAM_MAX_BACKOFF must be >= STREAM_BASE_BACKOFF > 0"))
	}
	if c.WebSocket.QueueDropThreshold > c.WebSocket.QueueMax || c.WebSocket.QueueDropThreshold < 1 {
		errs = append(errs, errors.New("WS_QUEUE_DROP_THRESHOLD must be in [1, WS_QUEUE_MAX]"))
	}
	return errors.Join(errs...)
}
