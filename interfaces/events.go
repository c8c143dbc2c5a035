package interfaces

import (
	"context"

	"github.com/customeros/txwatch/dto"
)

type EventPublisher interface {
	PublishTransactionConcluded(ctx context.Context, event dto.TransactionConcluded) error
	Close() error
}
