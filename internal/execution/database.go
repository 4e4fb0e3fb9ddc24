package execution

import (
	"errors"

	"github.com/halcyontrade/halcyon-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// SaveRecord inserts or updates the persistence mirror of an execution.
func (d *Database) SaveRecord(record *types.ExecutionRecord) error {
	var existing types.ExecutionRecord
	err := d.db.Where("execution_id = ?", record.ExecutionID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return d.db.Create(record).Error
		}
		return err
	}
	record.ID = existing.ID
	return d.db.Save(record).Error
}

func (d *Database) GetRecord(executionID string) (*types.ExecutionRecord, error) {
	var record types.ExecutionRecord
	if err := d.db.Where("execution_id = ?", executionID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (d *Database) ListRecords() ([]types.ExecutionRecord, error) {
	var records []types.ExecutionRecord
	if err := d.db.Order("opened_at desc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
