// Command simulation walks the full vault and execution lifecycle against
// simulated chains: setup, unlock, wallet creation, account derivation, an
// execution with a swap, and close with realized P&L.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/halcyontrade/halcyon-api/internal/chain"
	"github.com/halcyontrade/halcyon-api/internal/database"
	"github.com/halcyontrade/halcyon-api/internal/execution"
	"github.com/halcyontrade/halcyon-api/internal/hdwallet"
	"github.com/halcyontrade/halcyon-api/internal/session"
	"github.com/halcyontrade/halcyon-api/internal/strategy"
	"github.com/halcyontrade/halcyon-api/internal/types"
	"github.com/halcyontrade/halcyon-api/internal/vault"
)

const masterPassword = "Sim0nly!Pass"

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

func main() {
	ctx := context.Background()

	db, err := database.NewDatabase("file:simulation?mode=memory&cache=shared")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	registry := chain.NewRegistry()
	ethereum := chain.NewSimulatedClient("ethereum", "ETH")
	registry.Register(ethereum, []chain.Token{{Symbol: "USDC", Address: "USDC"}})

	prices := chain.StaticPrices{
		"ETH":  2500,
		"USDC": 1,
	}

	vaultService := vault.NewService(db)
	sessionManager := session.NewManager(vaultService)
	walletService := hdwallet.NewService(db, vaultService, sessionManager)
	executionManager := execution.NewManager(db, registry, sessionManager, walletService, prices)

	// Vault lifecycle
	if _, err := vaultService.Setup(masterPassword); err != nil {
		log.Fatal().Err(err).Msg("vault setup failed")
	}
	sessionManager.MarkSetupComplete()

	if err := sessionManager.Unlock(ctx, masterPassword); err != nil {
		log.Fatal().Err(err).Msg("unlock failed")
	}
	defer sessionManager.Lock()

	// Wallet and accounts
	wallet, err := walletService.CreateWallet("simulation")
	if err != nil {
		log.Fatal().Err(err).Msg("wallet creation failed")
	}
	log.Info().Str("wallet_id", wallet.WalletID).Msg("wallet created, mnemonic shown once")

	account, err := walletService.DeriveNextAccount(wallet.WalletID, "trader-0")
	if err != nil {
		log.Fatal().Err(err).Msg("account derivation failed")
	}
	log.Info().Str("address", account.Address).Msg("account derived")

	// Fund the simulated chain
	ethereum.SetBalance(account.Address, "ETH", 1.0)
	ethereum.SetBalance(account.Address, "USDC", 10.0)

	// Execution lifecycle
	exec, err := executionManager.Create(ctx, "sim-1", "dca-strategy", []types.ChainConfig{
		{ChainName: "ethereum", AccountID: account.AccountID},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("execution creation failed")
	}
	log.Info().Str("execution_id", exec.ID).Msg("execution opened")

	// A strategy script decides the trade; the swap runs on the chain.
	runner := strategy.NewRunner()
	defer runner.Close()
	if err := runner.Execute(`log("swapping 5 USDC into ETH"); 5;`); err != nil {
		log.Fatal().Err(err).Msg("strategy execution failed")
	}
	for msg := range runner.Messages() {
		log.Info().Str("type", string(msg.Type)).Str("line", msg.Line).Str("result", msg.Result).Msg("strategy message")
		if msg.Type == strategy.MessageCompleted || msg.Type == strategy.MessageError {
			break
		}
	}

	adapters := chain.NewAdapterRegistry()
	adapters.Register(chain.NewSimulatedAdapter(registry))
	adapter, err := adapters.Adapter(chain.ProtocolSimulated)
	if err != nil {
		log.Fatal().Err(err).Msg("adapter lookup failed")
	}

	address, err := executionManager.Address(exec.ID, "ethereum")
	if err != nil {
		log.Fatal().Err(err).Msg("address lookup failed")
	}
	receipt, err := adapter.Swap(ctx, chain.SwapParams{
		ChainName: "ethereum",
		Address:   address,
		FromAsset: "USDC",
		ToAsset:   "ETH",
		AmountIn:  5.0,
		AmountOut: 0.002,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("swap failed")
	}
	if err := executionManager.RecordGas(exec.ID, receipt.GasCostUsd); err != nil {
		log.Fatal().Err(err).Msg("gas recording failed")
	}

	result, err := executionManager.Close(ctx, exec.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("execution close failed")
	}

	log.Info().
		Float64("gross_pnl_usd", result.GrossPnlUsd).
		Float64("gas_cost_usd", result.GasCostUsd).
		Float64("net_pnl_usd", result.NetPnlUsd).
		Msg("simulation complete")
}
