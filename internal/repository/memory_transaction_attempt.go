package repository

import (
	"context"
	"sync"
	"time"

	"github.com/customeros/txwatch/interfaces"
	"github.com/customeros/txwatch/internal/enum"
	"github.com/customeros/txwatch/internal/models"
	"github.com/customeros/txwatch/internal/utils"
)

type attemptKey struct {
	mailbox string
	mailID  string
}

// memoryTransactionAttemptRepository keeps the ledger for the lifetime of the process
type memoryTransactionAttemptRepository struct {
	mu       sync.Mutex
	attempts map[attemptKey]*models.TransactionAttempt
}

func NewMemoryTransactionAttemptRepository() interfaces.TransactionAttemptRepository {
	return &memoryTransactionAttemptRepository{
		attempts: make(map[attemptKey]*models.TransactionAttempt),
	}
}

func (r *memoryTransactionAttemptRepository) GetByMailID(_ context.Context, mailbox, mailID string) (*models.TransactionAttempt, error) {
	if mailbox == "" || mailID == "" {
		return nil, ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, ok := r.attempts[attemptKey{mailbox, mailID}]
	if !ok {
		return nil, nil
	}
	copied := *attempt
	return &copied, nil
}

func (r *memoryTransactionAttemptRepository) RecordOutcome(_ context.Context, mailbox, mailID, code string, outcome enum.AttemptOutcome) (*models.TransactionAttempt, error) {
	if mailbox == "" || mailID == "" {
		return nil, ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := attemptKey{mailbox, mailID}
	attempt, ok := r.attempts[key]
	if !ok {
		now := utils.Now()
		attempt = &models.TransactionAttempt{
			ID:        utils.GenerateNanoIDWithPrefix("txat", 16),
			Mailbox:   mailbox,
			MailID:    mailID,
			CreatedAt: now,
		}
		r.attempts[key] = attempt
	}
	attempt.Record(code, outcome, utils.Now())

	copied := *attempt
	return &copied, nil
}

func (r *memoryTransactionAttemptRepository) DeleteConcludedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for key, attempt := range r.attempts {
		if attempt.ConcludedAt != nil && attempt.ConcludedAt.Before(cutoff) {
			delete(r.attempts, key)
			deleted++
		}
	}
	return deleted, nil
}
