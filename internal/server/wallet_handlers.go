package server

import (
	"github.com/gin-gonic/gin"

	"github.com/halcyontrade/halcyon-api/pkg/response"
)

type createWalletRequest struct {
	Name string `json:"name" binding:"required"`
}

type deriveAccountRequest struct {
	Name string `json:"name" binding:"required"`
}

type importAccountRequest struct {
	Name       string `json:"name" binding:"required"`
	PrivateKey string `json:"private_key" binding:"required"`
}

// CreateWalletHandler creates an HD wallet. The response is the only place
// the mnemonic ever appears.
func (s *Server) CreateWalletHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createWalletRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Wallet name is required")
			return
		}

		wallet, err := s.wallets.CreateWallet(req.Name)
		response.Handle(c, wallet, err)
	}
}

// ListWalletsHandler lists wallet records, without mnemonics.
func (s *Server) ListWalletsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		wallets, err := s.wallets.ListWallets()
		response.Handle(c, wallets, err)
	}
}

// DeriveAccountHandler derives the next account of a wallet.
func (s *Server) DeriveAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deriveAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Account name is required")
			return
		}

		account, err := s.wallets.DeriveNextAccount(c.Param("wallet_id"), req.Name)
		response.Handle(c, account, err)
	}
}

// ImportAccountHandler stores an externally supplied private key as an
// imported account.
func (s *Server) ImportAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req importAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Account name and private key are required")
			return
		}

		account, err := s.wallets.ImportAccount(req.Name, req.PrivateKey)
		response.Handle(c, account, err)
	}
}

// ListAccountsHandler lists account records, without key material.
func (s *Server) ListAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := s.wallets.ListAccounts()
		response.Handle(c, accounts, err)
	}
}

// DeleteAccountHandler removes an account and its encrypted key. The parent
// wallet, for HD accounts, is untouched.
func (s *Server) DeleteAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.wallets.DeleteAccount(c.Param("account_id"))
		response.Handle(c, gin.H{"deleted": true}, err)
	}
}

// RevealAccountHandler returns an account's decrypted private key. Requires
// an unlocked session; the key is re-read from the session store on every
// call.
func (s *Server) RevealAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		revealed, err := s.wallets.Reveal(c.Param("account_id"))
		response.Handle(c, revealed, err)
	}
}
