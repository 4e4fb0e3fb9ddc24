package hdwallet

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyontrade/halcyon-api/internal/database"
	"github.com/halcyontrade/halcyon-api/internal/session"
	"github.com/halcyontrade/halcyon-api/internal/vault"
)

const testPassword = "Str0ng!Pass"

func newUnlockedService(t *testing.T) (*Service, *session.Manager) {
	t.Helper()
	db, err := database.NewTestDatabase()
	require.NoError(t, err)

	vaultService := vault.NewService(db)
	_, err = vaultService.Setup(testPassword)
	require.NoError(t, err)

	sessionManager := session.NewManager(vaultService)
	require.NoError(t, sessionManager.Unlock(context.Background(), testPassword))

	return NewService(db, vaultService, sessionManager), sessionManager
}

func TestCreateWalletReturnsMnemonicOnce(t *testing.T) {
	s, _ := newUnlockedService(t)

	created, err := s.CreateWallet("W1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.WalletID)
	assert.True(t, ValidateMnemonic(created.Mnemonic))

	// No listing ever exposes the mnemonic again.
	wallets, err := s.ListWallets()
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, "W1", wallets[0].Name)
}

func TestCreateWalletRequiresUnlock(t *testing.T) {
	s, m := newUnlockedService(t)
	m.Lock()

	_, err := s.CreateWallet("W1")
	assert.ErrorIs(t, err, session.ErrLocked)
}

func TestDeriveNextAccountSequence(t *testing.T) {
	s, _ := newUnlockedService(t)

	created, err := s.CreateWallet("W1")
	require.NoError(t, err)

	first, err := s.DeriveNextAccount(created.WalletID, "acct-0")
	require.NoError(t, err)
	require.NotNil(t, first.DerivationIndex)
	assert.Equal(t, uint32(0), *first.DerivationIndex)
	assert.Equal(t, "m/44'/60'/0'/0/0", *first.DerivationPath)
	assert.Equal(t, created.WalletID, *first.HDWalletID)

	second, err := s.DeriveNextAccount(created.WalletID, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), *second.DerivationIndex)
	assert.NotEqual(t, first.Address, second.Address)

	next, err := s.NextIndex(created.WalletID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), next)
}

func TestDeletedIndexIsNeverReused(t *testing.T) {
	s, _ := newUnlockedService(t)

	created, err := s.CreateWallet("W1")
	require.NoError(t, err)

	first, err := s.DeriveNextAccount(created.WalletID, "acct-0")
	require.NoError(t, err)
	_, err = s.DeriveNextAccount(created.WalletID, "acct-1")
	require.NoError(t, err)

	require.NoError(t, s.DeleteAccount(first.AccountID))

	next, err := s.NextIndex(created.WalletID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), next)

	third, err := s.DeriveNextAccount(created.WalletID, "acct-2")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), *third.DerivationIndex)

	// The parent wallet survives account deletion.
	wallets, err := s.ListWallets()
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
}

func TestDerivedAccountIsStableAcrossRelock(t *testing.T) {
	s, m := newUnlockedService(t)

	created, err := s.CreateWallet("W1")
	require.NoError(t, err)
	account, err := s.DeriveNextAccount(created.WalletID, "acct-0")
	require.NoError(t, err)

	m.Lock()
	require.NoError(t, m.Unlock(context.Background(), testPassword))

	revealed, err := s.Reveal(account.AccountID)
	require.NoError(t, err)
	assert.Equal(t, account.Address, revealed.Address)
	assert.NotEmpty(t, revealed.PrivateKey)
}

func TestWalletCreatedAfterPasswordChangeSurvivesRelock(t *testing.T) {
	s, m := newUnlockedService(t)
	require.NoError(t, m.ChangePassword(testPassword, "N3w!Pass"))

	created, err := s.CreateWallet("W1")
	require.NoError(t, err)

	m.Lock()
	require.NoError(t, m.Unlock(context.Background(), "N3w!Pass"))

	// The mnemonic row decrypts under the new password and derivation works.
	account, err := s.DeriveNextAccount(created.WalletID, "acct-0")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), *account.DerivationIndex)
}

func TestImportAccount(t *testing.T) {
	s, _ := newUnlockedService(t)

	derived, err := DeriveAccount(vectorMnemonic, 7)
	require.NoError(t, err)

	account, err := s.ImportAccount("cold", "0x"+hex.EncodeToString(derived.PrivateKey))
	require.NoError(t, err)
	assert.Equal(t, derived.Address, account.Address)
	assert.Nil(t, account.HDWalletID)
	assert.Nil(t, account.DerivationIndex)
	assert.Nil(t, account.DerivationPath)

	revealed, err := s.Reveal(account.AccountID)
	require.NoError(t, err)
	assert.Equal(t, derived.Address, revealed.Address)
}

func TestRevealRequiresUnlock(t *testing.T) {
	s, m := newUnlockedService(t)

	created, err := s.CreateWallet("W1")
	require.NoError(t, err)
	account, err := s.DeriveNextAccount(created.WalletID, "acct-0")
	require.NoError(t, err)

	m.Lock()
	_, err = s.Reveal(account.AccountID)
	assert.ErrorIs(t, err, session.ErrLocked)
}

func TestDeleteAccountRemovesKey(t *testing.T) {
	s, m := newUnlockedService(t)

	created, err := s.CreateWallet("W1")
	require.NoError(t, err)
	account, err := s.DeriveNextAccount(created.WalletID, "acct-0")
	require.NoError(t, err)

	require.NoError(t, s.DeleteAccount(account.AccountID))

	_, err = s.GetAccount(account.AccountID)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = m.SigningKey(account.AccountID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	assert.ErrorIs(t, s.DeleteAccount(account.AccountID), ErrAccountNotFound)
}
