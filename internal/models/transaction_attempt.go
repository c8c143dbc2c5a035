package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/customeros/txwatch/internal/enum"
	"github.com/customeros/txwatch/internal/utils"
)

// maxOutcomeHistory bounds the per-email outcome history, attempts keep counting past it
const maxOutcomeHistory = 50

// TransactionAttempt tracks how many times the webhook was called for one provider email
type TransactionAttempt struct {
	ID          string              `gorm:"column:id;type:varchar(50);primaryKey"`
	Mailbox     string              `gorm:"column:mailbox;type:varchar(255);not null;uniqueIndex:idx_transaction_attempts_mail"`
	MailID      string              `gorm:"column:mail_id;type:varchar(50);not null;uniqueIndex:idx_transaction_attempts_mail"`
	Code        string              `gorm:"column:code;type:varchar(50);index"`
	Attempts    int                 `gorm:"column:attempts;not null;default:0"`
	LastOutcome enum.AttemptOutcome `gorm:"column:last_outcome;type:varchar(50)"`
	Outcomes    pq.StringArray      `gorm:"column:outcomes;type:text[]"`
	ConcludedAt *time.Time          `gorm:"column:concluded_at;type:timestamp"`
	CreatedAt   time.Time           `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (TransactionAttempt) TableName() string {
	return "transaction_attempts"
}

func (m *TransactionAttempt) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("txat", 16)
	}
	return nil
}

// Record applies one notify round to the attempt
func (m *TransactionAttempt) Record(code string, outcome enum.AttemptOutcome, at time.Time) {
	m.Code = code
	m.Attempts++
	m.LastOutcome = outcome
	m.Outcomes = append(m.Outcomes, outcome.String())
	if len(m.Outcomes) > maxOutcomeHistory {
		m.Outcomes = m.Outcomes[len(m.Outcomes)-maxOutcomeHistory:]
	}
	if outcome == enum.AttemptConcluded && m.ConcludedAt == nil {
		m.ConcludedAt = &at
	}
	m.UpdatedAt = at
}
