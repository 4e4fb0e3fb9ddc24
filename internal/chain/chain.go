// Package chain defines the narrow interfaces the core consumes from chain
// collaborators. The core performs no balance queries, gas estimation or
// transaction submission of its own; each chain is a Client implementation
// resolved by name through an explicit Registry, never by dynamic lookup.
package chain

import (
	"context"
	"errors"
	"sync"
)

var ErrUnknownChain = errors.New("no client registered for chain")

// Transaction is the minimal payload handed to a chain for signing and
// submission.
type Transaction struct {
	From  string
	To    string
	Data  []byte
	Value float64
}

// Receipt is the result of a submitted transaction.
type Receipt struct {
	Hash        string
	BlockNumber uint64
	GasUsed     float64
	GasCostUsd  float64
}

// Token identifies one tracked ERC-20-style asset on a chain.
type Token struct {
	Symbol  string
	Address string
}

// Client is the per-chain collaborator interface. Implementations own their
// timeouts; the core propagates their failures without retrying.
type Client interface {
	ChainName() string
	NativeSymbol() string
	NativeBalance(ctx context.Context, address string) (float64, error)
	TokenBalance(ctx context.Context, address, tokenAddress string) (float64, error)
	GasPrice(ctx context.Context) (float64, error)
	SendTransaction(ctx context.Context, tx *Transaction) (*Receipt, error)
}

// PriceLookup converts asset symbols to USD for P&L valuation.
type PriceLookup interface {
	USDPrice(symbol string) (float64, error)
}

// Registry is the explicit chainName -> Client mapping, with the token list
// tracked per chain for inventory snapshots.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	tokens  map[string][]Token
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
		tokens:  make(map[string][]Token),
	}
}

// Register binds a client and its tracked tokens under the client's chain
// name, replacing any previous binding.
func (r *Registry) Register(client Client, tokens []Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ChainName()] = client
	r.tokens[client.ChainName()] = tokens
}

// Client resolves a chain by name.
func (r *Registry) Client(chainName string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[chainName]
	if !ok {
		return nil, ErrUnknownChain
	}
	return client, nil
}

// Tokens returns the tracked token list for a chain.
func (r *Registry) Tokens(chainName string) []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tokens[chainName]
}
