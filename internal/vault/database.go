package vault

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

// GetVaultRecord returns the singleton vault record, or nil when the vault
// has never been set up.
func (d *Database) GetVaultRecord() (*types.VaultRecord, error) {
	var record types.VaultRecord
	if err := d.db.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (d *Database) CreateVaultRecord(record *types.VaultRecord) error {
	return d.db.Create(record).Error
}

func (d *Database) SaveVaultRecord(record *types.VaultRecord) error {
	return d.db.Save(record).Error
}

func (d *Database) GetSecret(category, ownerID string) (*types.EncryptedSecret, error) {
	var secret types.EncryptedSecret
	err := d.db.Where("category = ? AND owner_id = ?", category, ownerID).First(&secret).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &secret, nil
}

func (d *Database) SaveSecret(secret *types.EncryptedSecret) error {
	return d.db.Save(secret).Error
}

func (d *Database) DeleteSecret(category, ownerID string) error {
	return d.db.Unscoped().
		Where("category = ? AND owner_id = ?", category, ownerID).
		Delete(&types.EncryptedSecret{}).Error
}

func (d *Database) ListSecretsByCategory(category string) ([]types.EncryptedSecret, error) {
	var secrets []types.EncryptedSecret
	if err := d.db.Where("category = ?", category).Find(&secrets).Error; err != nil {
		return nil, err
	}
	return secrets, nil
}

func (d *Database) ListAllSecrets() ([]types.EncryptedSecret, error) {
	var secrets []types.EncryptedSecret
	if err := d.db.Find(&secrets).Error; err != nil {
		return nil, err
	}
	return secrets, nil
}

// RotateSecrets replaces every secret row and the vault record in a single
// transaction. Used by password changes: either every secret is re-encrypted
// under the new key or nothing changes.
func (d *Database) RotateSecrets(secrets []types.EncryptedSecret, record *types.VaultRecord) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		for i := range secrets {
			if err := tx.Save(&secrets[i]).Error; err != nil {
				return err
			}
		}
		return tx.Save(record).Error
	})
}

// WipeAll removes every secret, the vault record, and all rows that are
// meaningless without their secrets. All-or-nothing.
func (d *Database) WipeAll() error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&types.EncryptedSecret{},
			&types.Account{},
			&types.HDWallet{},
			&types.APIKeyRecord{},
			&types.RPCOverrideRecord{},
			&types.VaultRecord{},
		} {
			if err := tx.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
