package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campushub/internal/auth"
	"campushub/internal/logger"
)

type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

func SendOTP(otps *auth.OTPService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SendOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		expiresAt, err := otps.Issue(c.Request.Context(), req.Email)
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "otp sent", "expiresAt": expiresAt})
	}
}

// VerifyOTP confirms ownership of the email address.
func VerifyOTP(otps *auth.OTPService, sessions *auth.SessionManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		if err := otps.Verify(c.Request.Context(), req.Email, req.OTP); err != nil {
			respondError(c, log, err)
			return
		}
		if err := sessions.MarkEmailVerified(c.Request.Context(), req.Email); err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "email verified"})
	}
}

// ResetPassword sets a new password after an OTP check and revokes every session.
func ResetPassword(otps *auth.OTPService, sessions *auth.SessionManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		if err := otps.Verify(c.Request.Context(), req.Email, req.OTP); err != nil {
			respondError(c, log, err)
			return
		}
		if err := sessions.ResetPassword(c.Request.Context(), req.Email, req.NewPassword); err != nil {
			respondError(c, log, err)
			return
		}

		clearRefreshCookie(c, sessions.Tenant())
		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
	}
}
