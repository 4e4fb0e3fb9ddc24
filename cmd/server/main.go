package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/gin-gonic/gin"

	"github.com/halcyontrade/halcyon-api/internal/auth"
	"github.com/halcyontrade/halcyon-api/internal/chain"
	"github.com/halcyontrade/halcyon-api/internal/config"
	"github.com/halcyontrade/halcyon-api/internal/database"
	"github.com/halcyontrade/halcyon-api/internal/execution"
	"github.com/halcyontrade/halcyon-api/internal/hdwallet"
	"github.com/halcyontrade/halcyon-api/internal/server"
	"github.com/halcyontrade/halcyon-api/internal/session"
	"github.com/halcyontrade/halcyon-api/internal/vault"
	"github.com/halcyontrade/halcyon-api/pkg/middleware"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the vault API server with graceful shutdown
// support. All services are constructed once here and passed by reference;
// nothing holds ambient global state.
func main() {
	cfg := config.Load()

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Chain clients are external collaborators; the server ships with
	// simulated chains until real adapters are registered.
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
	authService := auth.NewService(cfg.JWTSecret)

	srv := server.New(vaultService, sessionManager, walletService, executionManager, authService)

	router.Use(middleware.RateLimit())
	srv.SetupRoutes(router)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()
	zlog.Info().Str("port", cfg.Port).Msg("server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Lock before exit so no decrypted secret outlives the process loop.
	sessionManager.Lock()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}
