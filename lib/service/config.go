package service

import (
	"time"
)

type Config struct {
	DatabaseUri                      string  `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns                 int     `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns             int     `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime          int     `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	DatabaseTimeout                  int     `envconfig:"DATABASE_TIMEOUT" default:"60"`             // 60 seconds
	SentryDSN                        string  `envconfig:"SENTRY_DSN"`
	DatadogAgentUrl                  string  `envconfig:"DATADOG_AGENT_URL"`
	SentryTracesSampleRate           float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	LogFilePath                      string  `envconfig:"LOG_FILE_PATH"`
	LogLevel                         string  `envconfig:"LOG_LEVEL" default:"info"`
	JWTSecret                        []byte  `envconfig:"JWT_SECRET" required:"true"`
	AdminToken                       string  `envconfig:"ADMIN_TOKEN"`
	JWTRefreshTokenExpiry            int     `envconfig:"JWT_REFRESH_EXPIRY" default:"604800"` // in seconds, default 7 days
	JWTAccessTokenExpiry             int     `envconfig:"JWT_ACCESS_EXPIRY" default:"172800"`  // in seconds, default 2 days
	Host                             string  `envconfig:"HOST" default:"localhost:3000"`
	Port                             int     `envconfig:"PORT" default:"3000"`
	DefaultRateLimit                 int     `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit                  int     `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit                   int     `envconfig:"BURST_RATE_LIMIT" default:"1"`
	EnablePrometheus                 bool    `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort                   int     `envconfig:"PROMETHEUS_PORT" default:"9092"`
	WebhookUrl                       string  `envconfig:"WEBHOOK_URL"`
	AllowAccountCreation             bool    `envconfig:"ALLOW_ACCOUNT_CREATION" default:"true"`
	MinPasswordEntropy               int     `envconfig:"MIN_PASSWORD_ENTROPY" default:"0"`
	RedisUrl                         string  `envconfig:"REDIS_URL"`
	IdempotencyTTL                   int     `envconfig:"IDEMPOTENCY_TTL" default:"86400"` // in seconds, default 24 hours
	RabbitMQUri                      string  `envconfig:"RABBITMQ_URI"`
	RabbitMQTransactionExchange      string  `envconfig:"RABBITMQ_TRANSACTION_EXCHANGE" default:"qrishub_transaction"`
	RabbitMQGatewayExchange          string  `envconfig:"RABBITMQ_GATEWAY_EXCHANGE" default:"gateway_callback"`
	RabbitMQGatewayConsumerQueueName string  `envconfig:"RABBITMQ_GATEWAY_CONSUMER_QUEUE_NAME" default:"qrishub_gateway_consumer"`
	Payment                          PaymentConfig
}

type PaymentConfig struct {
	ExpiryHours         int   `envconfig:"PAYMENT_EXPIRY_HOURS" default:"24"`
	MaxProofSize        int64 `envconfig:"MAX_PROOF_SIZE" default:"5242880"` // 5 MiB
	UniqueCode          bool  `envconfig:"QRIS_UNIQUE_CODE" default:"false"`
	ExpirySweepInterval int   `envconfig:"EXPIRY_SWEEP_INTERVAL" default:"300"` // in seconds
	PageLimit           int   `envconfig:"PAGE_LIMIT" default:"20"`
}

func (c *Config) IdempotencyWindow() time.Duration {
	return time.Duration(c.IdempotencyTTL) * time.Second
}

func (p PaymentConfig) SweepInterval() time.Duration {
	if p.ExpirySweepInterval <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(p.ExpirySweepInterval) * time.Second
}

func (p PaymentConfig) Expiry(hours int) time.Duration {
	if hours <= 0 {
		hours = p.ExpiryHours
	}
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}
