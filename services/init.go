package services

import (
	"github.com/pkg/errors"

	"github.com/customeros/txwatch/config"
	"github.com/customeros/txwatch/interfaces"
	"github.com/customeros/txwatch/internal/logger"
	"github.com/customeros/txwatch/internal/repository"
	"github.com/customeros/txwatch/services/events"
	"github.com/customeros/txwatch/services/guerrilla"
	"github.com/customeros/txwatch/services/processor"
	"github.com/customeros/txwatch/services/storage"
	"github.com/customeros/txwatch/services/webhook"
)

type Services struct {
	Session        *guerrilla.Session
	MailProvider   interfaces.MailProvider
	Notifier       interfaces.TransactionNotifier
	Archive        interfaces.StorageService
	EventPublisher interfaces.EventPublisher
	Processor      interfaces.Processor
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	session, err := guerrilla.NewSession(cfg.ProviderConfig)
	if err != nil {
		return nil, err
	}

	archive, err := storage.NewArchiveStorage(cfg.ArchiveConfig)
	if err != nil {
		return nil, err
	}

	publisher, err := events.NewEventPublisher(cfg.AppConfig.RabbitMQURL, log, events.DefaultPublisherConfig())
	if err != nil {
		return nil, errors.Wrap(err, "failed to init event publisher")
	}

	services := Services{
		Session:        session,
		MailProvider:   guerrilla.NewGuerrillaService(log, cfg.ProviderConfig, session),
		Notifier:       webhook.NewWebhookService(log, cfg.WebhookConfig),
		Archive:        archive,
		EventPublisher: publisher,
	}

	services.Processor = processor.NewProcessor(log, cfg.ProcessorConfig, cfg.ProviderConfig.MailboxUser, processor.Dependencies{
		Provider:  services.MailProvider,
		Notifier:  services.Notifier,
		Attempts:  repos.TransactionAttemptRepository,
		Archive:   services.Archive,
		Publisher: services.EventPublisher,
	})

	return &services, nil
}
