package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campushub/internal/apperrors"
	"campushub/internal/auth"
	"campushub/internal/logger"
	"campushub/internal/middleware"
)

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// Login answers with the access token and sets the refresh cookie.
func Login(sessions *auth.SessionManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		session, err := sessions.Login(c.Request.Context(), req.Identifier, req.Password, clientMeta(c))
		if err != nil {
			respondError(c, log, err)
			return
		}

		setRefreshCookie(c, sessions.Tenant(), session.Refresh)
		c.JSON(http.StatusOK, gin.H{
			"accessToken": session.Access.Value,
			"expiresAt":   session.Access.ExpiresAt,
			"account":     session.Account,
		})
	}
}

// Refresh rotates the refresh cookie. Every failure is a 401.
func Refresh(sessions *auth.SessionManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := sessions.Tenant()

		token := readRefreshCookie(c, tenant)
		if token == "" {
			respondError(c, log, apperrors.ErrUnauthenticated)
			return
		}

		session, err := sessions.Refresh(c.Request.Context(), token, clientMeta(c))
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindUnauthenticated {
				clearRefreshCookie(c, tenant)
			}
			respondError(c, log, err)
			return
		}

		setRefreshCookie(c, tenant, session.Refresh)
		c.JSON(http.StatusOK, gin.H{
			"accessToken": session.Access.Value,
			"expiresAt":   session.Access.ExpiresAt,
		})
	}
}

// Logout always clears the cookie, even when forgetting the token failed.
func Logout(sessions *auth.SessionManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := sessions.Tenant()
		token := readRefreshCookie(c, tenant)
		clearRefreshCookie(c, tenant)

		if token != "" {
			if err := sessions.Logout(c.Request.Context(), token); err != nil {
				respondError(c, log, err)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

// LogoutAll runs behind middleware.AuthGuard.
func LogoutAll(sessions *auth.SessionManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clearRefreshCookie(c, sessions.Tenant())

		account, ok := middleware.AccountFromContext(c)
		if !ok {
			respondError(c, log, apperrors.ErrUnauthenticated)
			return
		}

		if err := sessions.LogoutAll(c.Request.Context(), account.ID); err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "logged out from all devices"})
	}
}
