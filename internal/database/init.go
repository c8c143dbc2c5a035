package database

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/txwatch/config"
)

// InitTxwatchDatabase opens the ledger database, it returns nil when no database is configured
func InitTxwatchDatabase(dbConfig *config.DatabaseConfig) (*gorm.DB, error) {
	if !dbConfig.Enabled() {
		return nil, nil
	}

	db, err := NewConnection(dbConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to the database")
	}

	return db, nil
}
