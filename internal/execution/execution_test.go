package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyontrade/halcyon-api/internal/chain"
	"github.com/halcyontrade/halcyon-api/internal/database"
	"github.com/halcyontrade/halcyon-api/internal/hdwallet"
	"github.com/halcyontrade/halcyon-api/internal/session"
	"github.com/halcyontrade/halcyon-api/internal/types"
	"github.com/halcyontrade/halcyon-api/internal/vault"
)

const testPassword = "Str0ng!Pass"

type fixture struct {
	manager   *Manager
	session   *session.Manager
	ethereum  *chain.SimulatedClient
	accountID string
	address   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewTestDatabase()
	require.NoError(t, err)

	vaultService := vault.NewService(db)
	_, err = vaultService.Setup(testPassword)
	require.NoError(t, err)

	sessionManager := session.NewManager(vaultService)
	require.NoError(t, sessionManager.Unlock(context.Background(), testPassword))

	wallets := hdwallet.NewService(db, vaultService, sessionManager)
	created, err := wallets.CreateWallet("W1")
	require.NoError(t, err)
	account, err := wallets.DeriveNextAccount(created.WalletID, "acct-0")
	require.NoError(t, err)

	ethereum := chain.NewSimulatedClient("ethereum", "ETH")
	ethereum.MinLatency = 0
	ethereum.MaxLatency = 0

	registry := chain.NewRegistry()
	registry.Register(ethereum, []chain.Token{{Symbol: "USDC", Address: "USDC"}})

	prices := chain.StaticPrices{"ETH": 2500, "USDC": 1}
	manager := NewManager(db, registry, sessionManager, wallets, prices)

	return &fixture{
		manager:   manager,
		session:   sessionManager,
		ethereum:  ethereum,
		accountID: account.AccountID,
		address:   account.Address,
	}
}

func (f *fixture) configs() []types.ChainConfig {
	return []types.ChainConfig{{ChainName: "ethereum", AccountID: f.accountID}}
}

func TestCreateCapturesStartingInventory(t *testing.T) {
	f := newFixture(t)
	f.ethereum.SetBalance(f.address, "ETH", 1)
	f.ethereum.SetBalance(f.address, "USDC", 10)

	exec, err := f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	require.NoError(t, err)
	assert.Equal(t, types.ExecutionStatusOpen, exec.Status())

	starting := exec.StartingInventory()
	require.Contains(t, starting.Chains, "ethereum")
	assets := map[string]float64{}
	for _, a := range starting.Chains["ethereum"] {
		assets[a.Symbol] = a.Amount
	}
	assert.Equal(t, 1.0, assets["ETH"])
	assert.Equal(t, 10.0, assets["USDC"])
}

func TestCreateRejectsDuplicate(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	require.NoError(t, err)

	_, err = f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	assert.ErrorIs(t, err, ErrDuplicateExecution)

	// The id becomes reusable once the first execution is closed.
	_, err = f.manager.Close(context.Background(), "exec-1")
	require.NoError(t, err)
	_, err = f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	assert.NoError(t, err)
}

func TestCreateRequiresChainConfigs(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Create(context.Background(), "exec-1", "strat-1", nil)
	assert.ErrorIs(t, err, ErrNoChainConfigs)
}

func TestCreateRequiresUnlockedSession(t *testing.T) {
	f := newFixture(t)
	f.session.Lock()

	_, err := f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	assert.ErrorIs(t, err, session.ErrLocked)
	assert.Equal(t, 0, f.manager.Count())
}

func TestCreateRejectsUnknownChain(t *testing.T) {
	f := newFixture(t)
	configs := []types.ChainConfig{{ChainName: "solana", AccountID: f.accountID}}

	_, err := f.manager.Create(context.Background(), "exec-1", "strat-1", configs)
	assert.ErrorIs(t, err, chain.ErrUnknownChain)
}

func TestCreateFailsWhenSnapshotFails(t *testing.T) {
	f := newFixture(t)
	f.ethereum.SetFailing(true)

	_, err := f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	assert.ErrorIs(t, err, ErrSnapshotFailed)

	// Nothing was registered.
	assert.Equal(t, 0, f.manager.Count())
	_, err = f.manager.Get("exec-1")
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestCloseComputesPointInTimePnl(t *testing.T) {
	f := newFixture(t)
	f.ethereum.SetBalance(f.address, "ETH", 1)
	f.ethereum.SetBalance(f.address, "USDC", 10)

	_, err := f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	require.NoError(t, err)

	// Trade 5 USDC into 0.002 ETH at ETH=$2500, then pay $2 of gas.
	f.ethereum.Swap(f.address, "USDC", 5, "ETH", 0.002)
	require.NoError(t, f.manager.RecordGas("exec-1", 2))

	result, err := f.manager.Close(context.Background(), "exec-1")
	require.NoError(t, err)

	// Start: 10 USDC + 1 ETH = $2510. End: 5 USDC + 1.002 ETH = $2510.
	assert.InDelta(t, 0.0, result.GrossPnlUsd, 1e-9)
	assert.InDelta(t, 2.0, result.GasCostUsd, 1e-9)
	assert.InDelta(t, -2.0, result.NetPnlUsd, 1e-9)
}

func TestCloseTwiceFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	require.NoError(t, err)

	first, err := f.manager.Close(context.Background(), "exec-1")
	require.NoError(t, err)

	_, err = f.manager.Close(context.Background(), "exec-1")
	assert.ErrorIs(t, err, ErrAlreadyClosed)

	// The persisted result is the first close, untouched by the retry.
	records, err := f.manager.History()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, first.NetPnlUsd, records[0].NetPnlUsd, 1e-9)
}

func TestCloseFailureLeavesExecutionOpen(t *testing.T) {
	f := newFixture(t)
	f.ethereum.SetBalance(f.address, "ETH", 1)

	exec, err := f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	require.NoError(t, err)

	f.ethereum.SetFailing(true)
	_, err = f.manager.Close(context.Background(), "exec-1")
	assert.ErrorIs(t, err, ErrSnapshotFailed)
	assert.Equal(t, types.ExecutionStatusOpen, exec.Status())

	// The close is retryable once the chain recovers.
	f.ethereum.SetFailing(false)
	_, err = f.manager.Close(context.Background(), "exec-1")
	assert.NoError(t, err)
}

func TestClosedExecutionHoldsNoBindings(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	require.NoError(t, err)

	client, err := f.manager.Client("exec-1", "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", client.ChainName())

	addr, err := f.manager.Address("exec-1", "ethereum")
	require.NoError(t, err)
	assert.Equal(t, f.address, addr)

	_, err = f.manager.Close(context.Background(), "exec-1")
	require.NoError(t, err)

	_, err = f.manager.Client("exec-1", "ethereum")
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	assert.Empty(t, f.manager.ListActive())
	assert.Equal(t, 1, f.manager.Count())
}

func TestRecordGasOnClosedExecutionFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	require.NoError(t, err)
	_, err = f.manager.Close(context.Background(), "exec-1")
	require.NoError(t, err)

	assert.ErrorIs(t, f.manager.RecordGas("exec-1", 1), ErrAlreadyClosed)
	assert.ErrorIs(t, f.manager.RecordGas("missing", 1), ErrExecutionNotFound)
}

func TestGasAccumulatesAcrossCalls(t *testing.T) {
	f := newFixture(t)
	f.ethereum.SetBalance(f.address, "ETH", 1)

	_, err := f.manager.Create(context.Background(), "exec-1", "strat-1", f.configs())
	require.NoError(t, err)

	require.NoError(t, f.manager.RecordGas("exec-1", 0.5))
	require.NoError(t, f.manager.RecordGas("exec-1", 1.25))

	result, err := f.manager.Close(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.InDelta(t, 1.75, result.GasCostUsd, 1e-9)
	assert.InDelta(t, -1.75, result.NetPnlUsd, 1e-9)
}
