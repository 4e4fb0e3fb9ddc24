// Package vault implements persistence-backed envelope encryption for the
// application's secret classes: seed phrases, private keys, third-party API
// keys and custom RPC URLs. Every secret is sealed independently under a key
// derived from the master password; the vault itself never holds plaintext
// beyond the lifetime of a call.
package vault

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/halcyontrade/halcyon-api/internal/crypto"
	"github.com/halcyontrade/halcyon-api/internal/types"
	"gorm.io/gorm"
)

var (
	ErrAlreadySetup       = errors.New("vault has already been set up")
	ErrNotSetup           = errors.New("vault setup is not complete")
	ErrInvalidCredentials = errors.New("invalid password")
	ErrSamePassword       = errors.New("new password must differ from the old password")
	ErrSecretNotFound     = errors.New("secret not found")
)

// Service owns the vault record and every encrypted secret row. No other
// component writes encrypted rows directly.
type Service struct {
	db *Database
}

// NewService creates a new vault service on the given database connection.
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// IsSetup reports whether a completed vault record exists.
func (s *Service) IsSetup() (bool, error) {
	record, err := s.db.GetVaultRecord()
	if err != nil {
		return false, err
	}
	return record != nil && record.IsSetupComplete, nil
}

// Setup initializes the vault with a master password. It generates
// independent salts for the password hash and the encryption key, persists
// the singleton record and marks setup complete. Fails with ErrAlreadySetup
// if a completed record exists.
func (s *Service) Setup(password string) (*types.VaultRecord, error) {
	existing, err := s.db.GetVaultRecord()
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsSetupComplete {
		return nil, ErrAlreadySetup
	}

	passwordSalt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	keySalt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}

	record := &types.VaultRecord{
		PasswordHash:    crypto.HashPassword(password, passwordSalt),
		PasswordSalt:    passwordSalt,
		KeySalt:         keySalt,
		IsSetupComplete: true,
	}

	if existing != nil {
		record.ID = existing.ID
		if err := s.db.SaveVaultRecord(record); err != nil {
			return nil, err
		}
	} else if err := s.db.CreateVaultRecord(record); err != nil {
		return nil, err
	}

	log.Info().Msg("vault setup complete")
	return record, nil
}

// UnlockKey verifies the password against the stored hash and, on success,
// derives the vault encryption key. The caller owns the returned key and is
// responsible for zeroing it.
func (s *Service) UnlockKey(password string) ([]byte, error) {
	record, err := s.db.GetVaultRecord()
	if err != nil {
		return nil, err
	}
	if record == nil || !record.IsSetupComplete {
		return nil, ErrNotSetup
	}
	if !crypto.VerifyPassword(password, record.PasswordHash, record.PasswordSalt) {
		return nil, ErrInvalidCredentials
	}
	return crypto.DeriveKey(password, record.KeySalt), nil
}

// ChangePassword rotates the password hash, both salts, and re-encrypts
// every stored secret under the key derived from the new password. The swap
// is transactional: a failure on any row leaves everything under the old
// password. On success the new derived key is returned so a live session can
// keep sealing secrets under the rotated key; the caller owns it and is
// responsible for zeroing it.
func (s *Service) ChangePassword(oldPassword, newPassword string) ([]byte, error) {
	record, err := s.db.GetVaultRecord()
	if err != nil {
		return nil, err
	}
	if record == nil || !record.IsSetupComplete {
		return nil, ErrNotSetup
	}
	if !crypto.VerifyPassword(oldPassword, record.PasswordHash, record.PasswordSalt) {
		return nil, ErrInvalidCredentials
	}
	if oldPassword == newPassword {
		return nil, ErrSamePassword
	}

	oldKey := crypto.DeriveKey(oldPassword, record.KeySalt)
	defer crypto.Zero(oldKey)

	newPasswordSalt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	newKeySalt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	newKey := crypto.DeriveKey(newPassword, newKeySalt)

	secrets, err := s.db.ListAllSecrets()
	if err != nil {
		crypto.Zero(newKey)
		return nil, err
	}

	// Re-encrypt everything in memory first so a bad row aborts before any
	// write happens.
	for i := range secrets {
		plaintext, err := crypto.Decrypt(oldKey, secrets[i].Ciphertext, secrets[i].Nonce, secrets[i].Tag)
		if err != nil {
			crypto.Zero(newKey)
			return nil, err
		}
		ciphertext, nonce, tag, err := crypto.Encrypt(newKey, plaintext)
		crypto.Zero(plaintext)
		if err != nil {
			crypto.Zero(newKey)
			return nil, err
		}
		secrets[i].Ciphertext = ciphertext
		secrets[i].Nonce = nonce
		secrets[i].Tag = tag
	}

	record.PasswordHash = crypto.HashPassword(newPassword, newPasswordSalt)
	record.PasswordSalt = newPasswordSalt
	record.KeySalt = newKeySalt

	if err := s.db.RotateSecrets(secrets, record); err != nil {
		crypto.Zero(newKey)
		return nil, err
	}

	log.Info().Int("secrets_rotated", len(secrets)).Msg("vault password changed")
	return newKey, nil
}

// StoreSecret seals plaintext and persists it under (category, ownerID),
// replacing any previous value. A fresh nonce is generated on every call.
func (s *Service) StoreSecret(category, ownerID string, plaintext, key []byte) (*types.EncryptedSecret, error) {
	ciphertext, nonce, tag, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}

	secret, err := s.db.GetSecret(category, ownerID)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		secret = &types.EncryptedSecret{Category: category, OwnerID: ownerID}
	}
	secret.Ciphertext = ciphertext
	secret.Nonce = nonce
	secret.Tag = tag

	if err := s.db.SaveSecret(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// LoadSecret decrypts the secret stored under (category, ownerID). Returns
// ErrSecretNotFound if no row exists and crypto.ErrDecryption if the row
// fails authentication (wrong key or corruption).
func (s *Service) LoadSecret(category, ownerID string, key []byte) ([]byte, error) {
	secret, err := s.db.GetSecret(category, ownerID)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, ErrSecretNotFound
	}
	return crypto.Decrypt(key, secret.Ciphertext, secret.Nonce, secret.Tag)
}

// DeleteSecret removes the secret stored under (category, ownerID).
func (s *Service) DeleteSecret(category, ownerID string) error {
	return s.db.DeleteSecret(category, ownerID)
}

// ListSecrets returns the encrypted rows of one category. Callers decrypt
// individually so a single corrupted row never hides its neighbours.
func (s *Service) ListSecrets(category string) ([]types.EncryptedSecret, error) {
	return s.db.ListSecretsByCategory(category)
}

// Wipe irreversibly destroys the vault: every secret row, the vault record,
// and every row that is meaningless without its secret. Either everything is
// removed or nothing is.
func (s *Service) Wipe() error {
	if err := s.db.WipeAll(); err != nil {
		return err
	}
	log.Warn().Msg("vault wiped")
	return nil
}
