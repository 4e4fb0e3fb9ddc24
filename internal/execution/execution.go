// Package execution creates, tracks and closes trading executions. An
// execution owns one chain-client binding per configured chain, a starting
// inventory snapshot taken at creation, and the gas costs recorded while it
// runs; closing it takes the ending snapshot and computes realized P&L.
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/halcyontrade/halcyon-api/internal/chain"
	"github.com/halcyontrade/halcyon-api/internal/hdwallet"
	"github.com/halcyontrade/halcyon-api/internal/session"
	"github.com/halcyontrade/halcyon-api/internal/types"
	"gorm.io/gorm"
)

var (
	ErrDuplicateExecution = errors.New("execution already exists and is not closed")
	ErrExecutionNotFound  = errors.New("execution not found")
	ErrAlreadyClosed      = errors.New("execution is already closed")
	ErrSnapshotFailed     = errors.New("inventory snapshot failed")
	ErrNoChainConfigs     = errors.New("execution requires at least one chain config")
)

// binding ties one chain to the account that signs on it. Bindings are
// released when the execution closes.
type binding struct {
	client  chain.Client
	account string
	address string
	tokens  []chain.Token
}

// Execution is the live handle for one trading run. Operations on the same
// execution serialize on its mutex; different executions are independent.
type Execution struct {
	ID         string
	StrategyID string

	mu         sync.Mutex
	status     string
	bindings   map[string]*binding
	configs    []types.ChainConfig
	starting   types.InventorySnapshot
	ending     *types.InventorySnapshot
	gasCostUsd float64
	openedAt   time.Time
	closedAt   *time.Time
}

// Status returns the execution's current status.
func (e *Execution) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// StartingInventory returns the snapshot captured at creation.
func (e *Execution) StartingInventory() types.InventorySnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starting
}

// Manager is the execution registry. It reads signing material from the
// session store but never mutates it.
type Manager struct {
	mu         sync.RWMutex
	executions map[string]*Execution

	registry *chain.Registry
	session  *session.Manager
	wallets  *hdwallet.Service
	prices   chain.PriceLookup
	db       *Database
	logger   zerolog.Logger
}

// NewManager creates an execution manager.
func NewManager(gormDB *gorm.DB, registry *chain.Registry, sessionManager *session.Manager, wallets *hdwallet.Service, prices chain.PriceLookup) *Manager {
	return &Manager{
		executions: make(map[string]*Execution),
		registry:   registry,
		session:    sessionManager,
		wallets:    wallets,
		prices:     prices,
		db:         NewDatabase(gormDB),
		logger:     log.With().Str("component", "execution").Logger(),
	}
}

// Create opens a new execution: resolves a chain client and signing account
// for every chain config, captures the starting inventory snapshot, and
// registers the handle. Fails with ErrDuplicateExecution if an execution
// with this id exists and is not closed; a collaborator failure during the
// snapshot surfaces as ErrSnapshotFailed and nothing is registered.
func (m *Manager) Create(ctx context.Context, executionID, strategyID string, configs []types.ChainConfig) (*Execution, error) {
	if len(configs) == 0 {
		return nil, ErrNoChainConfigs
	}

	m.mu.Lock()
	if existing, ok := m.executions[executionID]; ok && existing.Status() != types.ExecutionStatusClosed {
		m.mu.Unlock()
		return nil, ErrDuplicateExecution
	}
	m.mu.Unlock()

	bindings := make(map[string]*binding, len(configs))
	for _, cfg := range configs {
		client, err := m.registry.Client(cfg.ChainName)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", cfg.ChainName, err)
		}

		// Confirms the session is unlocked and holds this account's key.
		if _, err := m.session.SigningKey(cfg.AccountID); err != nil {
			return nil, fmt.Errorf("account %s: %w", cfg.AccountID, err)
		}

		account, err := m.wallets.GetAccount(cfg.AccountID)
		if err != nil {
			return nil, err
		}

		bindings[cfg.ChainName] = &binding{
			client:  client,
			account: cfg.AccountID,
			address: account.Address,
			tokens:  m.registry.Tokens(cfg.ChainName),
		}
	}

	starting, err := m.snapshot(ctx, bindings)
	if err != nil {
		return nil, err
	}

	exec := &Execution{
		ID:         executionID,
		StrategyID: strategyID,
		status:     types.ExecutionStatusOpen,
		bindings:   bindings,
		configs:    configs,
		starting:   *starting,
		openedAt:   time.Now(),
	}

	record := exec.record()

	m.mu.Lock()
	if existing, ok := m.executions[executionID]; ok && existing.Status() != types.ExecutionStatusClosed {
		m.mu.Unlock()
		return nil, ErrDuplicateExecution
	}
	m.executions[executionID] = exec
	m.mu.Unlock()

	if err := m.db.SaveRecord(record); err != nil {
		m.logger.Error().Err(err).Str("execution_id", executionID).Msg("failed to persist execution record")
	}

	m.logger.Info().
		Str("execution_id", executionID).
		Str("strategy_id", strategyID).
		Int("chains", len(bindings)).
		Msg("execution opened")

	return exec, nil
}

// Get returns the handle for an execution id.
func (m *Manager) Get(executionID string) (*Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exec, ok := m.executions[executionID]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	return exec, nil
}

// Client returns the chain client bound to an open execution, for trading
// calls. Closed executions hold no bindings.
func (m *Manager) Client(executionID, chainName string) (chain.Client, error) {
	exec, err := m.Get(executionID)
	if err != nil {
		return nil, err
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.status == types.ExecutionStatusClosed {
		return nil, ErrAlreadyClosed
	}
	b, ok := exec.bindings[chainName]
	if !ok {
		return nil, fmt.Errorf("chain %s: %w", chainName, chain.ErrUnknownChain)
	}
	return b.client, nil
}

// Address returns the signing address an execution uses on a chain.
func (m *Manager) Address(executionID, chainName string) (string, error) {
	exec, err := m.Get(executionID)
	if err != nil {
		return "", err
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	b, ok := exec.bindings[chainName]
	if !ok {
		return "", fmt.Errorf("chain %s: %w", chainName, chain.ErrUnknownChain)
	}
	return b.address, nil
}

// RecordGas accumulates a gas cost against an open execution.
func (m *Manager) RecordGas(executionID string, costUsd float64) error {
	exec, err := m.Get(executionID)
	if err != nil {
		return err
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.status == types.ExecutionStatusClosed {
		return ErrAlreadyClosed
	}
	exec.gasCostUsd += costUsd
	return nil
}

// Close captures the ending snapshot, computes realized P&L and releases the
// execution's chain bindings. Closing twice fails with ErrAlreadyClosed and
// mutates nothing. A snapshot or valuation failure leaves the execution
// open so the close can be retried.
//
// The P&L is a point-in-time mark: every asset is valued at snapshot time,
// netPnl = sum(endingUsd - startingUsd) - sum(gasUsd).
func (m *Manager) Close(ctx context.Context, executionID string) (*types.ExecutionResult, error) {
	exec, err := m.Get(executionID)
	if err != nil {
		return nil, err
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()

	if exec.status == types.ExecutionStatusClosed {
		return nil, ErrAlreadyClosed
	}

	ending, err := m.snapshot(ctx, exec.bindings)
	if err != nil {
		return nil, err
	}

	startValue, err := m.valueUsd(exec.starting)
	if err != nil {
		return nil, err
	}
	endValue, err := m.valueUsd(*ending)
	if err != nil {
		return nil, err
	}

	grossPnl := endValue - startValue
	netPnl := grossPnl - exec.gasCostUsd

	now := time.Now()
	exec.status = types.ExecutionStatusClosed
	exec.ending = ending
	exec.closedAt = &now
	exec.bindings = nil

	result := &types.ExecutionResult{
		ExecutionID:       executionID,
		GrossPnlUsd:       grossPnl,
		GasCostUsd:        exec.gasCostUsd,
		NetPnlUsd:         netPnl,
		StartingInventory: exec.starting,
		EndingInventory:   *ending,
	}

	record := exec.record()
	record.GrossPnlUsd = grossPnl
	record.GasCostUsd = exec.gasCostUsd
	record.NetPnlUsd = netPnl
	if err := m.db.SaveRecord(record); err != nil {
		m.logger.Error().Err(err).Str("execution_id", executionID).Msg("failed to persist closed execution")
	}

	m.logger.Info().
		Str("execution_id", executionID).
		Float64("gross_pnl_usd", grossPnl).
		Float64("gas_cost_usd", exec.gasCostUsd).
		Float64("net_pnl_usd", netPnl).
		Msg("execution closed")

	return result, nil
}

// ListActive returns the handles of all open executions.
func (m *Manager) ListActive() []*Execution {
	m.mu.RLock()
	defer m.mu.RUnlock()
	active := make([]*Execution, 0, len(m.executions))
	for _, exec := range m.executions {
		if exec.Status() == types.ExecutionStatusOpen {
			active = append(active, exec)
		}
	}
	return active
}

// Count returns the number of tracked executions, open and closed.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.executions)
}

// History returns all persisted execution records, newest first.
func (m *Manager) History() ([]types.ExecutionRecord, error) {
	return m.db.ListRecords()
}

// snapshot captures native and tracked token balances for every binding. Any
// collaborator failure aborts the whole snapshot: a missing balance is never
// silently treated as zero.
func (m *Manager) snapshot(ctx context.Context, bindings map[string]*binding) (*types.InventorySnapshot, error) {
	snap := &types.InventorySnapshot{
		TakenAt: time.Now(),
		Chains:  make(map[string][]types.AssetAmount, len(bindings)),
	}

	for chainName, b := range bindings {
		native, err := b.client.NativeBalance(ctx, b.address)
		if err != nil {
			return nil, fmt.Errorf("%w: %s native balance: %v", ErrSnapshotFailed, chainName, err)
		}
		assets := []types.AssetAmount{{Symbol: b.client.NativeSymbol(), Amount: native}}

		for _, token := range b.tokens {
			amount, err := b.client.TokenBalance(ctx, b.address, token.Address)
			if err != nil {
				return nil, fmt.Errorf("%w: %s %s balance: %v", ErrSnapshotFailed, chainName, token.Symbol, err)
			}
			assets = append(assets, types.AssetAmount{Symbol: token.Symbol, Amount: amount})
		}

		snap.Chains[chainName] = assets
	}

	return snap, nil
}

// valueUsd marks a snapshot to USD using the injected price lookup.
func (m *Manager) valueUsd(snap types.InventorySnapshot) (float64, error) {
	total := 0.0
	for chainName, assets := range snap.Chains {
		for _, asset := range assets {
			price, err := m.prices.USDPrice(asset.Symbol)
			if err != nil {
				return 0, fmt.Errorf("%w: valuation on %s: %v", ErrSnapshotFailed, chainName, err)
			}
			total += asset.Amount * price
		}
	}
	return total, nil
}

// record builds the persistence mirror of the execution's current state.
// Caller holds exec.mu or has exclusive access.
func (e *Execution) record() *types.ExecutionRecord {
	configs, _ := json.Marshal(e.configs)
	starting, _ := json.Marshal(e.starting)

	record := &types.ExecutionRecord{
		ExecutionID:       e.ID,
		StrategyID:        e.StrategyID,
		Status:            e.status,
		ChainConfigs:      string(configs),
		StartingInventory: string(starting),
		OpenedAt:          e.openedAt,
		ClosedAt:          e.closedAt,
	}
	if e.ending != nil {
		ending, _ := json.Marshal(*e.ending)
		record.EndingInventory = string(ending)
	}
	return record
}
