package middleware

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/kinderbill/kinderbill/internal/config"
	"github.com/kinderbill/kinderbill/internal/types"
)

// SentryMiddleware returns a middleware that captures errors and performance data
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryTenantContextMiddleware seeds the request context with the tenant
// id from the route and tags the Sentry scope with it, so captured errors
// group by tenant.
func SentryTenantContextMiddleware(c *gin.Context) {
	tenantID := c.Param("id")
	if tenantID != "" {
		c.Request = c.Request.WithContext(types.SetTenantID(c.Request.Context(), tenantID))
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.Scope().SetTag("tenant_id", tenantID)
		}
	}
	c.Next()
}
