package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	cron_config "github.com/customeros/txwatch/internal/cron/config"
	"github.com/customeros/txwatch/internal/logger"
	"github.com/customeros/txwatch/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	Cron            *cron_config.Config
	ProviderConfig  *ProviderConfig
	WebhookConfig   *WebhookConfig
	ProcessorConfig *ProcessorConfig
	DatabaseConfig  *DatabaseConfig
	ArchiveConfig   *ArchiveConfig
}

func InitConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	return parseConfig()
}

func parseConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		Cron:            &cron_config.Config{},
		ProviderConfig:  &ProviderConfig{},
		WebhookConfig:   &WebhookConfig{},
		ProcessorConfig: &ProcessorConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		ArchiveConfig:   &ArchiveConfig{},
	}

	if err := env.Parse(config); err != nil {
		return nil, errors.Wrap(err, "error loading txwatch config")
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch {
	case c.ProviderConfig.Url == "":
		return errors.New("PROVIDER_URL is empty")
	case c.ProviderConfig.MailboxUser == "":
		return errors.New("MAILBOX_USER is empty")
	case c.WebhookConfig.BaseUrl == "":
		return errors.New("WEBHOOK_BASE_URL is empty")
	case c.ProcessorConfig.Concurrency < 1:
		return errors.Errorf("PROCESSOR_CONCURRENCY must be at least 1, got %d", c.ProcessorConfig.Concurrency)
	case c.ProcessorConfig.MaxNotifyAttempts < 0:
		return errors.Errorf("MAX_NOTIFY_ATTEMPTS must not be negative, got %d", c.ProcessorConfig.MaxNotifyAttempts)
	case c.ArchiveConfig.Provider == "r2" && c.ArchiveConfig.R2AccountID == "":
		return errors.New("ARCHIVE_R2_ACCOUNT_ID is required for the r2 archive")
	case c.ArchiveConfig.Enabled() && c.ArchiveConfig.Provider != "s3" && c.ArchiveConfig.Provider != "r2":
		return errors.Errorf("unsupported ARCHIVE_PROVIDER %q", c.ArchiveConfig.Provider)
	}
	return nil
}
