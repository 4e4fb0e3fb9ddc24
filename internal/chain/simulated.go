package chain

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SimulatedClient is an in-memory chain used by the simulation binary and
// tests. Balances are held per address and symbol; swaps mutate them
// directly. Latency and failure injection mimic a real endpoint.
type SimulatedClient struct {
	Name        string
	Symbol      string
	MinLatency  int // in milliseconds
	MaxLatency  int
	GasPriceUsd float64

	mu       sync.Mutex
	balances map[string]map[string]float64 // address -> symbol -> amount
	failing  bool
}

// NewSimulatedClient creates a simulated chain with no balances.
func NewSimulatedClient(name, nativeSymbol string) *SimulatedClient {
	return &SimulatedClient{
		Name:        name,
		Symbol:      nativeSymbol,
		MinLatency:  1,
		MaxLatency:  5,
		GasPriceUsd: 0.5,
		balances:    make(map[string]map[string]float64),
	}
}

func (c *SimulatedClient) ChainName() string    { return c.Name }
func (c *SimulatedClient) NativeSymbol() string { return c.Symbol }

// SetBalance sets the balance of one asset for an address.
func (c *SimulatedClient) SetBalance(address, symbol string, amount float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balances[address] == nil {
		c.balances[address] = make(map[string]float64)
	}
	c.balances[address][symbol] = amount
}

// SetFailing makes every subsequent call return an error, for exercising
// collaborator-failure paths.
func (c *SimulatedClient) SetFailing(failing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = failing
}

func (c *SimulatedClient) NativeBalance(ctx context.Context, address string) (float64, error) {
	return c.balance(ctx, address, c.Symbol)
}

func (c *SimulatedClient) TokenBalance(ctx context.Context, address, tokenAddress string) (float64, error) {
	return c.balance(ctx, address, tokenAddress)
}

func (c *SimulatedClient) GasPrice(ctx context.Context) (float64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	return c.GasPriceUsd, nil
}

// SendTransaction simulates submission and returns a synthetic receipt with
// a gas cost at the current simulated gas price.
func (c *SimulatedClient) SendTransaction(ctx context.Context, tx *Transaction) (*Receipt, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	receipt := &Receipt{
		Hash:        fmt.Sprintf("0xsim%016x", rand.Int63()),
		BlockNumber: uint64(rand.Int31()),
		GasUsed:     21000,
		GasCostUsd:  c.GasPriceUsd,
	}

	log.Debug().
		Str("chain", c.Name).
		Str("hash", receipt.Hash).
		Float64("gas_cost_usd", receipt.GasCostUsd).
		Msg("simulated transaction submitted")

	return receipt, nil
}

// Swap atomically moves an address's balances: out is debited, in is
// credited. Used by the simulation to model a DEX trade.
func (c *SimulatedClient) Swap(address, outSymbol string, outAmount float64, inSymbol string, inAmount float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balances[address] == nil {
		c.balances[address] = make(map[string]float64)
	}
	c.balances[address][outSymbol] -= outAmount
	c.balances[address][inSymbol] += inAmount
}

func (c *SimulatedClient) balance(ctx context.Context, address, symbol string) (float64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[address][symbol], nil
}

func (c *SimulatedClient) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	failing := c.failing
	c.mu.Unlock()
	if failing {
		return fmt.Errorf("chain %s unavailable", c.Name)
	}
	if c.MaxLatency > c.MinLatency {
		latency := rand.Intn(c.MaxLatency-c.MinLatency+1) + c.MinLatency
		time.Sleep(time.Duration(latency) * time.Millisecond)
	}
	return nil
}

// StaticPrices is a fixed symbol -> USD price table.
type StaticPrices map[string]float64

func (p StaticPrices) USDPrice(symbol string) (float64, error) {
	price, ok := p[symbol]
	if !ok {
		return 0, fmt.Errorf("no price for symbol %s", symbol)
	}
	return price, nil
}
