package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"campushub/internal/apperrors"
	"campushub/internal/logger"
	"campushub/internal/models"
)

const accountKey = "account"

type authorizer interface {
	Authorize(ctx context.Context, header string, roles ...string) (models.Account, error)
}

// AuthGuard admits requests whose bearer token resolves to a live account
// holding one of allowedRoles (any role when empty).
func AuthGuard(gate authorizer, log logger.Logger, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := gate.Authorize(c.Request.Context(), c.GetHeader("Authorization"), allowedRoles...)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindInternal {
				log.Error("authorization failed", "path", c.FullPath(), "error", err)
			} else {
				log.Debug("request rejected", "path", c.FullPath(), "reason", err.Error())
			}
			abortWithError(c, err)
			return
		}

		c.Set(accountKey, account)
		c.Next()
	}
}

// AccountFromContext returns the account stored by AuthGuard.
func AccountFromContext(c *gin.Context) (models.Account, bool) {
	v, ok := c.Get(accountKey)
	if !ok {
		return models.Account{}, false
	}
	account, ok := v.(models.Account)
	return account, ok
}

func abortWithError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	kind := apperrors.KindInternal
	if errors.As(err, &appErr) {
		kind = appErr.Kind()
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{
		"error":   string(kind),
		"message": apperrors.Message(err),
	})
}
