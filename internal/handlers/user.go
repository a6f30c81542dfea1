package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campushub/internal/apperrors"
	"campushub/internal/auth"
	"campushub/internal/logger"
	"campushub/internal/middleware"
	"campushub/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type UpdateMeRequest struct {
	Username        *string `json:"username"`
	Email           *string `json:"email" binding:"omitempty,email"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword" binding:"omitempty,min=8"`
}

// Register creates a public account. The caller logs in separately.
func Register(sessions *auth.SessionManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		account, err := sessions.CreateAccount(c.Request.Context(), auth.NewAccount{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Role:     models.RoleUser,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusCreated, account)
	}
}

func GetMe(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := middleware.AccountFromContext(c)
		if !ok {
			respondError(c, log, apperrors.ErrUnauthenticated)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

// UpdateMe edits the caller's profile. A password change signs out every
// device, this one included.
func UpdateMe(sessions *auth.SessionManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := middleware.AccountFromContext(c)
		if !ok {
			respondError(c, log, apperrors.ErrUnauthenticated)
			return
		}

		var req UpdateMeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Username == nil && req.Email == nil && req.NewPassword == "" {
			respondError(c, log, apperrors.New(apperrors.KindValidation, "no fields to update"))
			return
		}

		updated, err := sessions.UpdateProfile(c.Request.Context(), account.ID, auth.ProfileUpdate{
			Username:        req.Username,
			Email:           req.Email,
			CurrentPassword: req.CurrentPassword,
			NewPassword:     req.NewPassword,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}

		if req.NewPassword != "" {
			clearRefreshCookie(c, sessions.Tenant())
		}
		c.JSON(http.StatusOK, updated)
	}
}
