package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campushub/internal/auth"
)

// The refresh cookie is scoped to the tenant's auth routes, so it only
// travels with refresh and logout requests.
func setRefreshCookie(c *gin.Context, tenant auth.Tenant, token auth.IssuedToken) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(tenant.CookieName, token.Value, int(tenant.RefreshTTL.Seconds()), tenant.CookiePath, "", tenant.SecureCookie, true)
}

func clearRefreshCookie(c *gin.Context, tenant auth.Tenant) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(tenant.CookieName, "", -1, tenant.CookiePath, "", tenant.SecureCookie, true)
}

func readRefreshCookie(c *gin.Context, tenant auth.Tenant) string {
	value, err := c.Cookie(tenant.CookieName)
	if err != nil {
		return ""
	}
	return value
}
