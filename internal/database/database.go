package database

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/halcyontrade/halcyon-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase initializes and returns a new GORM DB connection for the given
// SQLite path and migrates the core schema.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// NewTestDatabase returns a private in-memory database for tests. Each call
// gets its own named memory database shared across the connection pool.
func NewTestDatabase() (*gorm.DB, error) {
	return NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.VaultRecord{},
		&types.EncryptedSecret{},
		&types.HDWallet{},
		&types.Account{},
		&types.APIKeyRecord{},
		&types.RPCOverrideRecord{},
		&types.ExecutionRecord{},
	)
}
