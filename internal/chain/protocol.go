package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownProtocol = errors.New("no adapter registered for protocol")

// Protocol tags. An adapter is selected by tag, never by concrete type.
const (
	ProtocolUniswapV3 = "uniswap_v3"
	ProtocolOneInch   = "1inch"
	ProtocolSimulated = "simulated"
)

// SwapParams describes one swap for a protocol adapter to execute.
type SwapParams struct {
	ChainName string
	Address   string
	FromAsset string
	ToAsset   string
	AmountIn  float64
	AmountOut float64
}

// ProtocolAdapter executes swaps against one DEX or aggregator. All protocol
// variants sit behind this interface; the core never sees their HTTP shapes.
type ProtocolAdapter interface {
	Protocol() string
	Swap(ctx context.Context, params SwapParams) (*Receipt, error)
}

// AdapterRegistry is the explicit protocol tag -> adapter mapping.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[string]ProtocolAdapter
}

func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[string]ProtocolAdapter)}
}

// Register binds an adapter under its protocol tag, replacing any previous
// binding.
func (r *AdapterRegistry) Register(adapter ProtocolAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Protocol()] = adapter
}

// Adapter resolves a protocol tag.
func (r *AdapterRegistry) Adapter(protocol string) (ProtocolAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[protocol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, protocol)
	}
	return adapter, nil
}

// SimulatedAdapter executes swaps against simulated chains by mutating their
// balances and submitting a synthetic transaction for the receipt.
type SimulatedAdapter struct {
	chains *Registry
}

func NewSimulatedAdapter(chains *Registry) *SimulatedAdapter {
	return &SimulatedAdapter{chains: chains}
}

func (a *SimulatedAdapter) Protocol() string { return ProtocolSimulated }

func (a *SimulatedAdapter) Swap(ctx context.Context, params SwapParams) (*Receipt, error) {
	client, err := a.chains.Client(params.ChainName)
	if err != nil {
		return nil, err
	}
	simulated, ok := client.(*SimulatedClient)
	if !ok {
		return nil, fmt.Errorf("chain %s is not simulated", params.ChainName)
	}

	receipt, err := simulated.SendTransaction(ctx, &Transaction{From: params.Address})
	if err != nil {
		return nil, err
	}
	simulated.Swap(params.Address, params.FromAsset, params.AmountIn, params.ToAsset, params.AmountOut)
	return receipt, nil
}
