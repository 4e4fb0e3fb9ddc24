// Package session implements the lock/unlock state machine. Unlocking
// verifies the master password, decrypts every stored secret once and
// populates a volatile in-process store; locking discards the store. Only
// this package mutates the store; everything else reads through it.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/halcyontrade/halcyon-api/internal/crypto"
	"github.com/halcyontrade/halcyon-api/internal/types"
	"github.com/halcyontrade/halcyon-api/internal/vault"
)

var (
	// ErrLocked is returned by store reads when no unlocked session exists.
	ErrLocked = errors.New("session is locked")

	// ErrNotFound is returned when the session is unlocked but the requested
	// entry is not in the store (never loaded, or skipped as corrupted).
	ErrNotFound = errors.New("entry not found in session store")
)

// State is the session lifecycle state.
type State string

const (
	StateSetupRequired State = "SETUP_REQUIRED"
	StateLocked        State = "LOCKED"
	StateUnlocking     State = "UNLOCKING"
	StateUnlocked      State = "UNLOCKED"
)

// Manager coordinates lock/unlock transitions and owns the secret store.
type Manager struct {
	vault  *vault.Service
	logger zerolog.Logger

	// transitionMu serializes unlock/lock so only one transition is ever in
	// flight. storeMu guards the store pointer for readers.
	transitionMu sync.Mutex
	storeMu      sync.RWMutex
	store        *secretStore
	state        State
}

// NewManager creates a session manager in the locked state.
func NewManager(vaultService *vault.Service) *Manager {
	m := &Manager{
		vault:  vaultService,
		logger: log.With().Str("component", "session").Logger(),
		state:  StateLocked,
	}
	if ok, err := vaultService.IsSetup(); err == nil && !ok {
		m.state = StateSetupRequired
	}
	return m
}

// State returns the current session state. Pure query, no side effects.
func (m *Manager) State() State {
	m.storeMu.RLock()
	defer m.storeMu.RUnlock()
	return m.state
}

// MarkSetupComplete moves a SETUP_REQUIRED session to LOCKED after the vault
// has been initialized.
func (m *Manager) MarkSetupComplete() {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	if m.state == StateSetupRequired {
		m.state = StateLocked
	}
}

// Unlock verifies the password, decrypts every stored secret and swaps the
// populated store in atomically. A corrupted row is logged and skipped;
// callers treat the missing entry as unavailable. A wrong password fails
// with vault.ErrInvalidCredentials and leaves the store empty. If ctx is
// cancelled before the store is committed, everything built so far is wiped
// and no partial state remains.
func (m *Manager) Unlock(ctx context.Context, password string) error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.setState(StateUnlocking)

	key, err := m.vault.UnlockKey(password)
	if err != nil {
		m.setState(m.idleState())
		return err
	}

	store := newSecretStore(key)
	if err := m.populate(store); err != nil {
		store.wipe()
		m.setState(m.idleState())
		return err
	}

	if err := ctx.Err(); err != nil {
		store.wipe()
		m.setState(m.idleState())
		return err
	}

	m.storeMu.Lock()
	old := m.store
	m.store = store
	m.state = StateUnlocked
	m.storeMu.Unlock()
	if old != nil {
		old.wipe()
	}

	m.logger.Info().
		Int("accounts", len(store.signing)).
		Int("wallets", len(store.mnemonics)).
		Int("api_keys", len(store.apiKeys)).
		Int("rpc_overrides", len(store.rpcOverrides)).
		Msg("session unlocked")
	return nil
}

// Lock synchronously clears every decrypted secret. Calling Lock on an
// already locked session is a no-op.
func (m *Manager) Lock() {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.storeMu.Lock()
	store := m.store
	m.store = nil
	if m.state == StateUnlocked || m.state == StateUnlocking {
		m.state = StateLocked
	}
	m.storeMu.Unlock()

	if store != nil {
		store.wipe()
		m.logger.Info().Msg("session locked")
	}
}

// ChangePassword rotates the master password. It shares the transition
// mutex with Unlock and Lock so no unlock races the re-encryption; an
// unlocked session stays unlocked since its plaintexts are unchanged, but
// its derived key is swapped for the rotated one so every secret stored
// afterwards seals under the key the next unlock will derive.
func (m *Manager) ChangePassword(oldPassword, newPassword string) error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	newKey, err := m.vault.ChangePassword(oldPassword, newPassword)
	if err != nil {
		return err
	}

	m.storeMu.Lock()
	if m.store != nil {
		crypto.Zero(m.store.key)
		m.store.key = newKey
	} else {
		crypto.Zero(newKey)
	}
	m.storeMu.Unlock()
	return nil
}

// Reset locks the session and irreversibly wipes the vault. The session
// lands in SETUP_REQUIRED.
func (m *Manager) Reset() error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.storeMu.Lock()
	store := m.store
	m.store = nil
	m.storeMu.Unlock()
	if store != nil {
		store.wipe()
	}

	if err := m.vault.Wipe(); err != nil {
		m.setState(m.idleState())
		return err
	}
	m.setState(StateSetupRequired)
	m.logger.Warn().Msg("vault reset, all secrets destroyed")
	return nil
}

// populate decrypts every secret category into the store. Individual rows
// that fail authentication are skipped, not fatal: the password already
// verified, so a bad row means local corruption of that row only.
func (m *Manager) populate(store *secretStore) error {
	load := func(category string, accept func(ownerID string, plaintext []byte)) error {
		secrets, err := m.vault.ListSecrets(category)
		if err != nil {
			return err
		}
		for i := range secrets {
			plaintext, err := crypto.Decrypt(store.key, secrets[i].Ciphertext, secrets[i].Nonce, secrets[i].Tag)
			if err != nil {
				m.logger.Warn().
					Str("category", category).
					Str("owner_id", secrets[i].OwnerID).
					Msg("skipping secret that failed authentication")
				continue
			}
			accept(secrets[i].OwnerID, plaintext)
		}
		return nil
	}

	if err := load(types.CategoryPrivateKey, func(ownerID string, plaintext []byte) {
		store.signing[ownerID] = &SigningMaterial{AccountID: ownerID, PrivateKey: plaintext}
	}); err != nil {
		return err
	}
	if err := load(types.CategoryMnemonic, func(ownerID string, plaintext []byte) {
		store.mnemonics[ownerID] = plaintext
	}); err != nil {
		return err
	}
	if err := load(types.CategoryAPIKey, func(ownerID string, plaintext []byte) {
		store.apiKeys[ownerID] = string(plaintext)
		crypto.Zero(plaintext)
	}); err != nil {
		return err
	}
	return load(types.CategoryRPCOverride, func(ownerID string, plaintext []byte) {
		store.rpcOverrides[ownerID] = string(plaintext)
		crypto.Zero(plaintext)
	})
}

func (m *Manager) setState(s State) {
	m.storeMu.Lock()
	m.state = s
	m.storeMu.Unlock()
}

// idleState is where a failed transition lands: locked, unless the vault was
// never set up.
func (m *Manager) idleState() State {
	if ok, err := m.vault.IsSetup(); err == nil && !ok {
		return StateSetupRequired
	}
	return StateLocked
}

// Key returns the derived vault key of the unlocked session. The caller must
// not retain it past the current operation.
func (m *Manager) Key() ([]byte, error) {
	m.storeMu.RLock()
	defer m.storeMu.RUnlock()
	if m.store == nil {
		return nil, ErrLocked
	}
	return m.store.key, nil
}

// SigningKey returns the decrypted private key for an account.
func (m *Manager) SigningKey(accountID string) (*SigningMaterial, error) {
	m.storeMu.RLock()
	defer m.storeMu.RUnlock()
	if m.store == nil {
		return nil, ErrLocked
	}
	mat, ok := m.store.signing[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return mat, nil
}

// Mnemonic returns the decrypted seed phrase for a wallet.
func (m *Manager) Mnemonic(walletID string) ([]byte, error) {
	m.storeMu.RLock()
	defer m.storeMu.RUnlock()
	if m.store == nil {
		return nil, ErrLocked
	}
	words, ok := m.store.mnemonics[walletID]
	if !ok {
		return nil, ErrNotFound
	}
	return words, nil
}

// APIKey returns a decrypted third-party API key.
func (m *Manager) APIKey(keyID string) (string, error) {
	m.storeMu.RLock()
	defer m.storeMu.RUnlock()
	if m.store == nil {
		return "", ErrLocked
	}
	value, ok := m.store.apiKeys[keyID]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// RPCOverride returns the custom RPC URL configured for a chain, if any.
func (m *Manager) RPCOverride(chainName string) (string, error) {
	m.storeMu.RLock()
	defer m.storeMu.RUnlock()
	if m.store == nil {
		return "", ErrLocked
	}
	url, ok := m.store.rpcOverrides[chainName]
	if !ok {
		return "", ErrNotFound
	}
	return url, nil
}

// PutSigningKey makes a newly created account's key available without a
// relock cycle. No-op when locked; the key will be loaded on next unlock.
func (m *Manager) PutSigningKey(accountID string, privateKey []byte) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	if m.store == nil {
		return
	}
	m.store.signing[accountID] = &SigningMaterial{AccountID: accountID, PrivateKey: privateKey}
}

// PutMnemonic makes a newly created wallet's mnemonic available without a
// relock cycle.
func (m *Manager) PutMnemonic(walletID string, words []byte) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	if m.store == nil {
		return
	}
	m.store.mnemonics[walletID] = words
}

// DropAccount removes one account's material from the live store, wiping
// its buffer. Used when an account is deleted mid-session.
func (m *Manager) DropAccount(accountID string) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	if m.store == nil {
		return
	}
	if mat, ok := m.store.signing[accountID]; ok {
		crypto.Zero(mat.PrivateKey)
		delete(m.store.signing, accountID)
	}
}

// LoadedSecrets reports how many entries the store currently holds.
func (m *Manager) LoadedSecrets() int {
	m.storeMu.RLock()
	defer m.storeMu.RUnlock()
	if m.store == nil {
		return 0
	}
	return m.store.size()
}
