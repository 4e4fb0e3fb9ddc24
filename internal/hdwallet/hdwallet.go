// Package hdwallet derives hierarchical-deterministic accounts along the
// fixed Ethereum path m/44'/60'/0'/0/{index} and manages wallet and account
// records. Secrets go through the vault; decrypted material comes from the
// session store.
package hdwallet

import (
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/halcyontrade/halcyon-api/internal/crypto"
	"github.com/halcyontrade/halcyon-api/internal/session"
	"github.com/halcyontrade/halcyon-api/internal/types"
	"github.com/halcyontrade/halcyon-api/internal/vault"
	"gorm.io/gorm"
)

var (
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrAccountNotFound = errors.New("account not found")
)

// Service manages HD wallets and signing accounts.
type Service struct {
	db      *Database
	vault   *vault.Service
	session *session.Manager
	logger  zerolog.Logger
}

// NewService creates a new wallet service.
func NewService(gormDB *gorm.DB, vaultService *vault.Service, sessionManager *session.Manager) *Service {
	return &Service{
		db:      NewDatabase(gormDB),
		vault:   vaultService,
		session: sessionManager,
		logger:  log.With().Str("component", "hdwallet").Logger(),
	}
}

// CreateWallet generates a fresh mnemonic, encrypts it into the vault and
// creates the wallet record. The mnemonic is returned exactly once, here;
// no other operation ever exposes it. Requires an unlocked session.
func (s *Service) CreateWallet(name string) (*types.CreateWalletResponse, error) {
	key, err := s.session.Key()
	if err != nil {
		return nil, err
	}

	mnemonic, err := GenerateMnemonic()
	if err != nil {
		return nil, err
	}

	walletID := uuid.New().String()
	if _, err := s.vault.StoreSecret(types.CategoryMnemonic, walletID, []byte(mnemonic), key); err != nil {
		return nil, err
	}

	wallet := &types.HDWallet{
		WalletID:  walletID,
		Name:      name,
		NextIndex: 0,
	}
	if err := s.db.CreateWallet(wallet); err != nil {
		return nil, err
	}

	s.session.PutMnemonic(walletID, []byte(mnemonic))
	s.logger.Info().Str("wallet_id", walletID).Msg("wallet created")

	return &types.CreateWalletResponse{
		WalletID: walletID,
		Name:     name,
		Mnemonic: mnemonic,
	}, nil
}

// ListWallets returns all wallet records. Mnemonics are never included.
func (s *Service) ListWallets() ([]types.HDWallet, error) {
	return s.db.ListWallets()
}

// NextIndex returns one past the highest index ever derived for the wallet.
// The counter is strictly increasing: deleting a derived account never makes
// its index available again.
func (s *Service) NextIndex(walletID string) (uint32, error) {
	wallet, err := s.db.GetWallet(walletID)
	if err != nil {
		return 0, err
	}
	if wallet == nil {
		return 0, ErrWalletNotFound
	}
	return wallet.NextIndex, nil
}

// DeriveNextAccount derives the account at the wallet's next index, encrypts
// its private key into the vault and persists the account record. The stored
// address is computed at derivation time and never recomputed silently.
func (s *Service) DeriveNextAccount(walletID, name string) (*types.Account, error) {
	key, err := s.session.Key()
	if err != nil {
		return nil, err
	}

	wallet, err := s.db.GetWallet(walletID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}

	words, err := s.session.Mnemonic(walletID)
	if err != nil {
		return nil, err
	}

	index := wallet.NextIndex
	derived, err := DeriveAccount(string(words), index)
	if err != nil {
		return nil, err
	}

	accountID := uuid.New().String()
	if _, err := s.vault.StoreSecret(types.CategoryPrivateKey, accountID, derived.PrivateKey, key); err != nil {
		crypto.Zero(derived.PrivateKey)
		return nil, err
	}

	path := derived.Path
	account := &types.Account{
		AccountID:       accountID,
		Name:            name,
		Address:         derived.Address,
		AccountType:     types.AccountTypeHD,
		HDWalletID:      &walletID,
		DerivationIndex: &index,
		DerivationPath:  &path,
	}
	if err := s.db.CreateAccountAndBumpIndex(account, wallet); err != nil {
		crypto.Zero(derived.PrivateKey)
		return nil, err
	}

	s.session.PutSigningKey(accountID, derived.PrivateKey)
	s.logger.Info().
		Str("wallet_id", walletID).
		Str("account_id", accountID).
		Uint32("index", index).
		Msg("account derived")

	return account, nil
}

// ImportAccount stores an externally supplied private key as an imported
// account. Imported accounts carry no wallet id, index or path.
func (s *Service) ImportAccount(name, privateKeyHex string) (*types.Account, error) {
	key, err := s.session.Key()
	if err != nil {
		return nil, err
	}

	raw, err := ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return nil, err
	}
	address, err := AddressFromPrivateKey(raw)
	if err != nil {
		crypto.Zero(raw)
		return nil, err
	}

	accountID := uuid.New().String()
	if _, err := s.vault.StoreSecret(types.CategoryPrivateKey, accountID, raw, key); err != nil {
		crypto.Zero(raw)
		return nil, err
	}

	account := &types.Account{
		AccountID:   accountID,
		Name:        name,
		Address:     address,
		AccountType: types.AccountTypeImported,
	}
	if err := s.db.CreateAccount(account); err != nil {
		crypto.Zero(raw)
		return nil, err
	}

	s.session.PutSigningKey(accountID, raw)
	s.logger.Info().Str("account_id", accountID).Msg("account imported")
	return account, nil
}

// GetAccount returns one account record.
func (s *Service) GetAccount(accountID string) (*types.Account, error) {
	account, err := s.db.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// ListAccounts returns all account records. Private keys are never included.
func (s *Service) ListAccounts() ([]types.Account, error) {
	return s.db.ListAccounts()
}

// DeleteAccount removes the account record and its encrypted key, and drops
// any decrypted material from the live session. For HD accounts the parent
// wallet is untouched and its index counter keeps its value.
func (s *Service) DeleteAccount(accountID string) error {
	account, err := s.db.GetAccount(accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if err := s.db.DeleteAccount(accountID); err != nil {
		return err
	}
	if err := s.vault.DeleteSecret(types.CategoryPrivateKey, accountID); err != nil {
		return err
	}
	s.session.DropAccount(accountID)

	s.logger.Info().Str("account_id", accountID).Msg("account deleted")
	return nil
}

// Reveal returns the decrypted private key of an account. The key is always
// re-read from the session store and re-checked against the stored address;
// a mismatch means the row was tampered with since creation.
func (s *Service) Reveal(accountID string) (*types.RevealResponse, error) {
	account, err := s.db.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	mat, err := s.session.SigningKey(accountID)
	if err != nil {
		return nil, err
	}

	address, err := AddressFromPrivateKey(mat.PrivateKey)
	if err != nil {
		return nil, err
	}
	if address != account.Address {
		return nil, errors.New("stored address does not match derived address")
	}

	return &types.RevealResponse{
		AccountID:  accountID,
		Address:    address,
		PrivateKey: "0x" + hex.EncodeToString(mat.PrivateKey),
	}, nil
}
