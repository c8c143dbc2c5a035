package config

import "time"

type AppConfig struct {
	APIPort      string `env:"PORT" envDefault:"12222"`
	APIKey       string `env:"API_KEY"`
	RabbitMQURL  string `env:"RABBITMQ_URL"`
	PodName      string `env:"POD_NAME" envDefault:"local"`
	PodNamespace string `env:"POD_NAMESPACE"`
	LocalDev     bool   `env:"LOCAL_DEV" envDefault:"false"`
}

// ProviderConfig configures the disposable mailbox provider (Guerrilla Mail ajax API)
type ProviderConfig struct {
	Url         string        `env:"PROVIDER_URL" envDefault:"http://api.guerrillamail.com/ajax.php"`
	MailboxUser string        `env:"MAILBOX_USER" envDefault:"nhobzkpo"`
	Lang        string        `env:"PROVIDER_LANG" envDefault:"pt"`
	IP          string        `env:"PROVIDER_IP" envDefault:"127.0.0.1"`
	Agent       string        `env:"PROVIDER_AGENT" envDefault:"Mozilla/5.0 (Go)"`
	RateLimit   float64       `env:"PROVIDER_RATE_LIMIT" envDefault:"5"`
	RateBurst   int           `env:"PROVIDER_RATE_BURST" envDefault:"5"`
	Timeout     time.Duration `env:"PROVIDER_HTTP_TIMEOUT" envDefault:"30s"`
}

type WebhookConfig struct {
	BaseUrl string        `env:"WEBHOOK_BASE_URL" envDefault:"http://localhost:4563"`
	Timeout time.Duration `env:"WEBHOOK_HTTP_TIMEOUT" envDefault:"30s"`
}

type ProcessorConfig struct {
	Concurrency int `env:"PROCESSOR_CONCURRENCY" envDefault:"8"`
	// 0 keeps retrying an email on every cycle until the webhook accepts it
	MaxNotifyAttempts int `env:"MAX_NOTIFY_ATTEMPTS" envDefault:"0"`
}

// DatabaseConfig is optional, the attempt ledger falls back to memory when Host is empty
type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST"`
	Port            string `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"POSTGRES_USER"`
	DBName          string `env:"POSTGRES_DB_NAME"`
	Password        string `env:"POSTGRES_PASSWORD"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN" envDefault:"10"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN" envDefault:"2"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

func (c *DatabaseConfig) Enabled() bool {
	return c != nil && c.Host != ""
}

type ArchiveConfig struct {
	Provider        string `env:"ARCHIVE_PROVIDER"` // "", "s3" or "r2"
	Bucket          string `env:"ARCHIVE_BUCKET" envDefault:"transaction-emails"`
	AwsRegion       string `env:"ARCHIVE_AWS_REGION" envDefault:"us-east-1"`
	R2AccountID     string `env:"ARCHIVE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"ARCHIVE_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"ARCHIVE_ACCESS_KEY_SECRET"`
}

func (c *ArchiveConfig) Enabled() bool {
	return c != nil && c.Provider != ""
}
