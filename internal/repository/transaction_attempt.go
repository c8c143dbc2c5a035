package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/txwatch/interfaces"
	"github.com/customeros/txwatch/internal/enum"
	"github.com/customeros/txwatch/internal/models"
	"github.com/customeros/txwatch/internal/tracing"
	"github.com/customeros/txwatch/internal/utils"
)

type transactionAttemptRepository struct {
	db *gorm.DB
}

func NewTransactionAttemptRepository(db *gorm.DB) interfaces.TransactionAttemptRepository {
	return &transactionAttemptRepository{db: db}
}

// GetByMailID returns nil, nil when the email was never notified
func (r *transactionAttemptRepository) GetByMailID(ctx context.Context, mailbox, mailID string) (*models.TransactionAttempt, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "transactionAttemptRepository.GetByMailID")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailID)

	if mailbox == "" || mailID == "" {
		tracing.TraceErr(span, ErrInvalidInput)
		return nil, ErrInvalidInput
	}

	var attempt models.TransactionAttempt
	err := r.db.WithContext(ctx).
		Where("mailbox = ? AND mail_id = ?", mailbox, mailID).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get transaction attempt: %w", err)
	}

	return &attempt, nil
}

// RecordOutcome counts one more notify round for the email
func (r *transactionAttemptRepository) RecordOutcome(ctx context.Context, mailbox, mailID, code string, outcome enum.AttemptOutcome) (*models.TransactionAttempt, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "transactionAttemptRepository.RecordOutcome")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailID)
	span.LogKV("code", code, "outcome", outcome.String())

	if mailbox == "" || mailID == "" {
		tracing.TraceErr(span, ErrInvalidInput)
		return nil, ErrInvalidInput
	}

	var attempt models.TransactionAttempt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("mailbox = ? AND mail_id = ?", mailbox, mailID).
			First(&attempt).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			attempt = models.TransactionAttempt{Mailbox: mailbox, MailID: mailID}
			attempt.Record(code, outcome, utils.Now())
			return tx.Create(&attempt).Error
		case err != nil:
			return err
		}

		attempt.Record(code, outcome, utils.Now())
		return tx.Save(&attempt).Error
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to record transaction attempt: %w", err)
	}

	span.SetTag("attempts", attempt.Attempts)
	return &attempt, nil
}

// DeleteConcludedBefore prunes concluded attempts older than cutoff
func (r *transactionAttemptRepository) DeleteConcludedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "transactionAttemptRepository.DeleteConcludedBefore")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("cutoff_date", cutoff.Format(time.RFC3339))

	result := r.db.WithContext(ctx).
		Where("concluded_at IS NOT NULL AND concluded_at < ?", cutoff).
		Delete(&models.TransactionAttempt{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, fmt.Errorf("failed to delete concluded attempts: %w", result.Error)
	}

	span.SetTag("deleted_count", result.RowsAffected)
	return result.RowsAffected, nil
}
