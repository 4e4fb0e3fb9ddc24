package types

import (
	"time"

	"gorm.io/gorm"
)

// Secret categories stored in the vault. Every long-lived secret the
// application holds falls into exactly one of these.
const (
	CategoryMnemonic    = "mnemonic"
	CategoryPrivateKey  = "private_key"
	CategoryAPIKey      = "api_key"
	CategoryRPCOverride = "rpc_url"
)

// Account types.
const (
	AccountTypeHD       = "hd"
	AccountTypeImported = "imported"
)

// Execution statuses.
const (
	ExecutionStatusOpen   = "OPEN"
	ExecutionStatusClosed = "CLOSED"
)

// VaultRecord is the singleton row describing the installation's vault.
// Unlock is only possible once IsSetupComplete is true.
type VaultRecord struct {
	gorm.Model      `json:"-"`
	PasswordHash    []byte    `json:"-"`
	PasswordSalt    []byte    `json:"-"`
	KeySalt         []byte    `json:"-"`
	IsSetupComplete bool      `json:"is_setup_complete"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EncryptedSecret is the generic envelope for every stored secret. The
// ciphertext, nonce and authentication tag are persisted as three
// independent columns; losing any one makes the secret unrecoverable.
type EncryptedSecret struct {
	gorm.Model `json:"-"`
	Category   string `gorm:"uniqueIndex:idx_secret_category_owner" json:"category"`
	OwnerID    string `gorm:"uniqueIndex:idx_secret_category_owner" json:"owner_id"`
	Ciphertext []byte `json:"-"`
	Nonce      []byte `json:"-"`
	Tag        []byte `json:"-"`
}

// HDWallet owns zero or more derived accounts. NextIndex is a monotonic
// counter: it only ever grows, so a deleted account's index is never
// reissued. The mnemonic itself lives in an EncryptedSecret row keyed by
// WalletID.
type HDWallet struct {
	gorm.Model `json:"-"`
	WalletID   string    `gorm:"uniqueIndex" json:"wallet_id"`
	Name       string    `json:"name"`
	NextIndex  uint32    `json:"next_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// Account is a signing identity. HD accounts always carry a wallet id,
// derivation index and path; imported accounts carry none of these. The
// encrypted private key lives in an EncryptedSecret row keyed by AccountID.
type Account struct {
	gorm.Model      `json:"-"`
	AccountID       string    `gorm:"uniqueIndex" json:"account_id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	AccountType     string    `json:"account_type"` // hd or imported
	HDWalletID      *string   `json:"hd_wallet_id,omitempty"`
	DerivationIndex *uint32   `json:"derivation_index,omitempty"`
	DerivationPath  *string   `json:"derivation_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// APIKeyRecord names a third-party API key. The key value is vault-encrypted
// under CategoryAPIKey with KeyID as the owner.
type APIKeyRecord struct {
	gorm.Model `json:"-"`
	KeyID      string    `gorm:"uniqueIndex" json:"key_id"`
	Provider   string    `json:"provider"`
	CreatedAt  time.Time `json:"created_at"`
}

// RPCOverrideRecord names a custom RPC endpoint for a chain. The URL is
// vault-encrypted under CategoryRPCOverride with ChainName as the owner.
type RPCOverrideRecord struct {
	gorm.Model `json:"-"`
	ChainName  string    `gorm:"uniqueIndex" json:"chain_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExecutionRecord is the persistence mirror of a live execution. Inventory
// snapshots are serialized as JSON. The in-memory handle is authoritative
// while the execution is open; after close the row is retained read-only.
type ExecutionRecord struct {
	gorm.Model        `json:"-"`
	ExecutionID       string     `gorm:"uniqueIndex" json:"execution_id"`
	StrategyID        string     `json:"strategy_id"`
	Status            string     `json:"status"` // OPEN, CLOSED
	ChainConfigs      string     `json:"chain_configs"`
	StartingInventory string     `json:"starting_inventory"`
	EndingInventory   string     `json:"ending_inventory,omitempty"`
	GrossPnlUsd       float64    `json:"gross_pnl_usd"`
	GasCostUsd        float64    `json:"gas_cost_usd"`
	NetPnlUsd         float64    `json:"net_pnl_usd"`
	OpenedAt          time.Time  `json:"opened_at"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
}
