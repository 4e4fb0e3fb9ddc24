package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/halcyontrade/halcyon-api/internal/crypto"
	"github.com/halcyontrade/halcyon-api/internal/execution"
	"github.com/halcyontrade/halcyon-api/internal/hdwallet"
	"github.com/halcyontrade/halcyon-api/internal/session"
	"github.com/halcyontrade/halcyon-api/internal/vault"
)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an error response
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeLocked            = "LOCKED"
	ErrCodeSetupIncomplete   = "SETUP_INCOMPLETE"
	ErrCodeDecryptionFailed  = "DECRYPTION_FAILED"
	ErrCodeSnapshotFailed    = "SNAPSHOT_FAILED"
)

// Handle maps a domain error onto the matching HTTP response. A nil error
// sends data as a success payload.
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	switch {
	case errors.Is(err, vault.ErrInvalidCredentials):
		errorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, vault.ErrNotSetup):
		errorResponse(c, http.StatusConflict, ErrCodeSetupIncomplete, err.Error())
	case errors.Is(err, vault.ErrAlreadySetup),
		errors.Is(err, vault.ErrSamePassword),
		errors.Is(err, execution.ErrDuplicateExecution),
		errors.Is(err, execution.ErrAlreadyClosed):
		errorResponse(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, session.ErrLocked):
		errorResponse(c, http.StatusLocked, ErrCodeLocked, err.Error())
	case errors.Is(err, crypto.ErrDecryption):
		errorResponse(c, http.StatusConflict, ErrCodeDecryptionFailed, err.Error())
	case errors.Is(err, execution.ErrSnapshotFailed):
		errorResponse(c, http.StatusBadGateway, ErrCodeSnapshotFailed, err.Error())
	case errors.Is(err, vault.ErrSecretNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, hdwallet.ErrWalletNotFound),
		errors.Is(err, hdwallet.ErrAccountNotFound),
		errors.Is(err, execution.ErrExecutionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, hdwallet.ErrInvalidMnemonic),
		errors.Is(err, hdwallet.ErrInvalidPrivateKey),
		errors.Is(err, execution.ErrNoChainConfigs):
		BadRequest(c, err.Error())
	default:
		InternalError(c, "An unexpected error occurred")
	}
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == "POST" {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	errorResponse(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	errorResponse(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	errorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	errorResponse(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	errorResponse(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	errorResponse(c, http.StatusConflict, ErrCodeConflict, message)
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}
