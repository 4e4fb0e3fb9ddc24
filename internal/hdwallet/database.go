package hdwallet

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

func (d *Database) CreateWallet(wallet *types.HDWallet) error {
	return d.db.Create(wallet).Error
}

func (d *Database) GetWallet(walletID string) (*types.HDWallet, error) {
	var wallet types.HDWallet
	if err := d.db.Where("wallet_id = ?", walletID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (d *Database) ListWallets() ([]types.HDWallet, error) {
	var wallets []types.HDWallet
	if err := d.db.Find(&wallets).Error; err != nil {
		return nil, err
	}
	return wallets, nil
}

// CreateAccountAndBumpIndex inserts a derived account and advances the
// wallet's index counter in one transaction, so the counter can never run
// ahead of or behind the accounts it covers.
func (d *Database) CreateAccountAndBumpIndex(account *types.Account, wallet *types.HDWallet) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		wallet.NextIndex++
		return tx.Save(wallet).Error
	})
}

func (d *Database) CreateAccount(account *types.Account) error {
	return d.db.Create(account).Error
}

func (d *Database) GetAccount(accountID string) (*types.Account, error) {
	var account types.Account
	if err := d.db.Where("account_id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (d *Database) ListAccounts() ([]types.Account, error) {
	var accounts []types.Account
	if err := d.db.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (d *Database) DeleteAccount(accountID string) error {
	return d.db.Unscoped().Where("account_id = ?", accountID).Delete(&types.Account{}).Error
}
