package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuietClient(name, symbol string) *SimulatedClient {
	c := NewSimulatedClient(name, symbol)
	c.MinLatency = 0
	c.MaxLatency = 0
	return c
}

func TestRegistryResolvesByName(t *testing.T) {
	registry := NewRegistry()
	ethereum := newQuietClient("ethereum", "ETH")
	registry.Register(ethereum, []Token{{Symbol: "USDC", Address: "USDC"}})

	client, err := registry.Client("ethereum")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", client.ChainName())

	tokens := registry.Tokens("ethereum")
	require.Len(t, tokens, 1)
	assert.Equal(t, "USDC", tokens[0].Symbol)

	_, err = registry.Client("solana")
	assert.ErrorIs(t, err, ErrUnknownChain)
}

func TestSimulatedClientBalances(t *testing.T) {
	ctx := context.Background()
	client := newQuietClient("ethereum", "ETH")
	client.SetBalance("0xabc", "ETH", 1.5)
	client.SetBalance("0xabc", "USDC", 10)

	native, err := client.NativeBalance(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, 1.5, native)

	token, err := client.TokenBalance(ctx, "0xabc", "USDC")
	require.NoError(t, err)
	assert.Equal(t, 10.0, token)

	// Unknown addresses read as zero; only call failures are errors.
	empty, err := client.NativeBalance(ctx, "0xdef")
	require.NoError(t, err)
	assert.Zero(t, empty)

	client.SetFailing(true)
	_, err = client.NativeBalance(ctx, "0xabc")
	assert.Error(t, err)
}

func TestSimulatedAdapterSwap(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	ethereum := newQuietClient("ethereum", "ETH")
	ethereum.SetBalance("0xabc", "ETH", 1)
	ethereum.SetBalance("0xabc", "USDC", 10)
	registry.Register(ethereum, []Token{{Symbol: "USDC", Address: "USDC"}})

	adapters := NewAdapterRegistry()
	adapters.Register(NewSimulatedAdapter(registry))

	adapter, err := adapters.Adapter(ProtocolSimulated)
	require.NoError(t, err)

	receipt, err := adapter.Swap(ctx, SwapParams{
		ChainName: "ethereum",
		Address:   "0xabc",
		FromAsset: "USDC",
		ToAsset:   "ETH",
		AmountIn:  5,
		AmountOut: 0.002,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.Hash)
	assert.Positive(t, receipt.GasCostUsd)

	usdc, err := ethereum.TokenBalance(ctx, "0xabc", "USDC")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, usdc, 1e-9)
	eth, err := ethereum.NativeBalance(ctx, "0xabc")
	require.NoError(t, err)
	assert.InDelta(t, 1.002, eth, 1e-9)
}

func TestAdapterRegistryUnknownProtocol(t *testing.T) {
	adapters := NewAdapterRegistry()
	_, err := adapters.Adapter(ProtocolUniswapV3)
	assert.ErrorIs(t, err, ErrUnknownProtocol)
}

func TestSimulatedAdapterRejectsUnknownChain(t *testing.T) {
	adapter := NewSimulatedAdapter(NewRegistry())
	_, err := adapter.Swap(context.Background(), SwapParams{ChainName: "ethereum"})
	assert.ErrorIs(t, err, ErrUnknownChain)
}

func TestStaticPrices(t *testing.T) {
	prices := StaticPrices{"ETH": 2500}

	price, err := prices.USDPrice("ETH")
	require.NoError(t, err)
	assert.Equal(t, 2500.0, price)

	_, err = prices.USDPrice("DOGE")
	assert.Error(t, err)
}
