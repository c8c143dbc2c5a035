package interfaces

import (
	"context"
	"time"

	"github.com/customeros/txwatch/internal/enum"
	"github.com/customeros/txwatch/internal/models"
)

type TransactionAttemptRepository interface {
	GetByMailID(ctx context.Context, mailbox, mailID string) (*models.TransactionAttempt, error)
	RecordOutcome(ctx context.Context, mailbox, mailID, code string, outcome enum.AttemptOutcome) (*models.TransactionAttempt, error)
	DeleteConcludedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
