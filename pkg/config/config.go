package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is kept empty because every field names its variable explicitly.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	MercadoPago  MercadoPagoConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Webhook      WebhookConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDLY_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDLY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"VENDLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENDLY_DB_DSN" required:"true"`
	Driver string `envconfig:"VENDLY_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"VENDLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDLY_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"VENDLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENDLY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDLY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDLY_AUTO_MIGRATE" default:"false"`
}

// MercadoPagoConfig carries the payment processor credentials.
type MercadoPagoConfig struct {
	AccessToken     string        `envconfig:"VENDLY_MP_ACCESS_TOKEN" required:"true"`
	WebhookSecret   string        `envconfig:"VENDLY_MP_WEBHOOK_SECRET" required:"true"`
	BaseURL         string        `envconfig:"VENDLY_MP_BASE_URL" default:"https://api.mercadopago.com"`
	NotificationURL string        `envconfig:"VENDLY_MP_NOTIFICATION_URL" default:""`
	Timeout         time.Duration `envconfig:"VENDLY_MP_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"VENDLY_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"VENDLY_PUBSUB_NOTIFICATION_TOPIC" default:"vendly-notification-events"`
}

// WebhookConfig tunes the reconciliation pipeline.
type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"VENDLY_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}
