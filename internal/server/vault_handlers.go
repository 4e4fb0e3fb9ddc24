package server

import (
	"github.com/gin-gonic/gin"

	"github.com/halcyontrade/halcyon-api/internal/session"
	"github.com/halcyontrade/halcyon-api/internal/types"
	"github.com/halcyontrade/halcyon-api/pkg/response"
)

// resetConfirmation is the exact value a reset request must carry. The wipe
// is irreversible; a typo must never trigger it.
const resetConfirmation = "ERASE-EVERYTHING"

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type resetRequest struct {
	Confirmation string `json:"confirmation" binding:"required"`
}

// StatusHandler reports the vault setup and session lock state.
func (s *Server) StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		isSetup, err := s.vault.IsSetup()
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		response.Success(c, gin.H{
			"is_setup": isSetup,
			"state":    s.session.State(),
		})
	}
}

// SetupHandler handles first-time vault initialization.
func (s *Server) SetupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req passwordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Password is required")
			return
		}

		record, err := s.vault.Setup(req.Password)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		s.session.MarkSetupComplete()

		response.Success(c, types.SetupResponse{
			IsSetupComplete: record.IsSetupComplete,
			CreatedAt:       record.CreatedAt,
		})
	}
}

// UnlockHandler decrypts the vault into the session store and issues a
// session token on success.
func (s *Server) UnlockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req passwordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Password is required")
			return
		}

		if err := s.session.Unlock(c.Request.Context(), req.Password); err != nil {
			response.Handle(c, nil, err)
			return
		}

		token, err := s.auth.IssueSessionToken()
		if err != nil {
			s.session.Lock()
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, types.UnlockResponse{
			Token:      token.Token,
			Expiration: token.Expiration,
			Accounts:   s.session.LoadedSecrets(),
		})
	}
}

// LockHandler clears the session store. Locking a locked session is a no-op.
func (s *Server) LockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.session.Lock()
		response.Success(c, gin.H{"state": session.StateLocked})
	}
}

// ChangePasswordHandler rotates the master password and re-encrypts every
// stored secret under the new key.
func (s *Server) ChangePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Old and new passwords are required")
			return
		}

		response.Handle(c, gin.H{"changed": true}, s.session.ChangePassword(req.OldPassword, req.NewPassword))
	}
}

// ResetHandler destroys the vault and every secret in it. Requires the exact
// confirmation value; there is no undo.
func (s *Server) ResetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Confirmation != resetConfirmation {
			response.BadRequest(c, "Reset requires confirmation value "+resetConfirmation)
			return
		}

		response.Handle(c, gin.H{"reset": true}, s.session.Reset())
	}
}
