// Package server wires the vault, session, wallet and execution services
// into the HTTP API consumed by the dashboard layer.
package server

import (
	"github.com/gin-gonic/gin"

	"github.com/halcyontrade/halcyon-api/internal/auth"
	"github.com/halcyontrade/halcyon-api/internal/execution"
	"github.com/halcyontrade/halcyon-api/internal/hdwallet"
	"github.com/halcyontrade/halcyon-api/internal/session"
	"github.com/halcyontrade/halcyon-api/internal/vault"
	"github.com/halcyontrade/halcyon-api/pkg/middleware"
)

// Server holds the service handles the HTTP handlers dispatch to.
type Server struct {
	vault      *vault.Service
	session    *session.Manager
	wallets    *hdwallet.Service
	executions *execution.Manager
	auth       *auth.Service
}

// New creates a server over the given services.
func New(
	vaultService *vault.Service,
	sessionManager *session.Manager,
	walletService *hdwallet.Service,
	executionManager *execution.Manager,
	authService *auth.Service,
) *Server {
	return &Server{
		vault:      vaultService,
		session:    sessionManager,
		wallets:    walletService,
		executions: executionManager,
		auth:       authService,
	}
}

// SetupRoutes registers every endpoint on the router. Vault lifecycle
// endpoints are public (they are the authentication); everything touching
// decrypted state requires a session token.
func (s *Server) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		vaultGroup := v1.Group("/vault")
		{
			vaultGroup.GET("/status", s.StatusHandler())
			vaultGroup.POST("/setup", s.SetupHandler())
			vaultGroup.POST("/unlock", s.UnlockHandler())
			vaultGroup.POST("/lock", s.LockHandler())
			vaultGroup.POST("/change-password", s.ChangePasswordHandler())
			vaultGroup.POST("/reset", s.ResetHandler())
		}

		protected := v1.Group("")
		protected.Use(middleware.SessionAuth(s.auth))
		{
			accounts := protected.Group("/accounts")
			{
				accounts.GET("", s.ListAccountsHandler())
				accounts.POST("", s.ImportAccountHandler())
				accounts.DELETE("/:account_id", s.DeleteAccountHandler())
				accounts.POST("/:account_id/reveal", s.RevealAccountHandler())
			}

			wallets := protected.Group("/wallets")
			{
				wallets.GET("", s.ListWalletsHandler())
				wallets.POST("", s.CreateWalletHandler())
				wallets.POST("/:wallet_id/accounts", s.DeriveAccountHandler())
			}

			executions := protected.Group("/executions")
			{
				executions.GET("", s.ListExecutionsHandler())
				executions.GET("/history", s.ExecutionHistoryHandler())
				executions.POST("", s.CreateExecutionHandler())
				executions.POST("/:execution_id/close", s.CloseExecutionHandler())
			}
		}
	}
}
