package interfaces

import (
	"context"

	"github.com/customeros/txwatch/internal/models"
)

// MailProvider is the disposable mailbox the processor polls
type MailProvider interface {
	// SetEmailUser binds the session to username and returns the full address
	SetEmailUser(ctx context.Context, username string) (string, error)
	GetEmailList(ctx context.Context) ([]models.EmailSummary, error)
	// FetchEmail never fails, ok is false when the body could not be obtained
	FetchEmail(ctx context.Context, mailID string) (body string, ok bool)
	DeleteEmail(ctx context.Context, mailID string) bool
}
