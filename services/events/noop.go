package events

import (
	"context"

	"github.com/customeros/txwatch/dto"
	"github.com/customeros/txwatch/internal/logger"
)

// NoopPublisher only logs, it is used when no broker is configured
type NoopPublisher struct {
	logger logger.Logger
}

func NewNoopPublisher(logger logger.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) PublishTransactionConcluded(_ context.Context, event dto.TransactionConcluded) error {
	p.logger.Debugf("Transaction %s concluded (mail %s), no broker configured", event.Code, event.MailID)
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}
