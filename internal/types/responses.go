package types

import "time"

// SetupResponse is returned once after vault setup completes.
type SetupResponse struct {
	IsSetupComplete bool      `json:"is_setup_complete"`
	CreatedAt       time.Time `json:"created_at"`
}

// UnlockResponse is returned on a successful unlock.
type UnlockResponse struct {
	Token      string    `json:"session_token"`
	Expiration time.Time `json:"expiration"`
	Accounts   int       `json:"accounts_loaded"`
}

// CreateWalletResponse carries the mnemonic exactly once, at creation.
// It is never returned by any other endpoint.
type CreateWalletResponse struct {
	WalletID string `json:"wallet_id"`
	Name     string `json:"name"`
	Mnemonic string `json:"mnemonic"`
}

// RevealResponse carries a decrypted private key on an explicit, unlocked
// reveal request.
type RevealResponse struct {
	AccountID  string `json:"account_id"`
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

// ChainConfig binds one chain to the account that signs on it.
type ChainConfig struct {
	ChainName string `json:"chain_name"`
	AccountID string `json:"account_id"`
}

// AssetAmount is one line of an inventory snapshot.
type AssetAmount struct {
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
}

// InventorySnapshot is the balance state of one execution across its chains
// at a point in time, valued at snapshot time.
type InventorySnapshot struct {
	TakenAt time.Time                `json:"taken_at"`
	Chains  map[string][]AssetAmount `json:"chains"`
}

// ExecutionResult is returned by closing an execution.
type ExecutionResult struct {
	ExecutionID       string            `json:"execution_id"`
	GrossPnlUsd       float64           `json:"gross_pnl_usd"`
	GasCostUsd        float64           `json:"gas_cost_usd"`
	NetPnlUsd         float64           `json:"net_pnl_usd"`
	StartingInventory InventorySnapshot `json:"starting_inventory"`
	EndingInventory   InventorySnapshot `json:"ending_inventory"`
}
