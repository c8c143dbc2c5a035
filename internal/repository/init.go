package repository

import (
	"gorm.io/gorm"

	"github.com/customeros/txwatch/interfaces"
	"github.com/customeros/txwatch/internal/models"
)

type Repositories struct {
	TransactionAttemptRepository interfaces.TransactionAttemptRepository
}

// InitRepositories uses postgres when db is set and process memory otherwise
func InitRepositories(db *gorm.DB) *Repositories {
	if db == nil {
		return &Repositories{
			TransactionAttemptRepository: NewMemoryTransactionAttemptRepository(),
		}
	}

	return &Repositories{
		TransactionAttemptRepository: NewTransactionAttemptRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.TransactionAttempt{},
	)
}
