package rest

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/kinderbill/kinderbill/internal/api/v1"
	"github.com/kinderbill/kinderbill/internal/config"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/rest/middleware"
)

// Handlers bundles the route handlers mounted on the router.
type Handlers struct {
	Health  *v1.HealthHandler
	Webhook *v1.WebhookHandler
	Tenant  *v1.TenantHandler
}

// NewRouter assembles the HTTP surface: the provider webhook endpoint plus
// the read-only admin endpoints.
func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.LoggingMiddleware(log),
		middleware.ErrorHandler(log),
	)

	router.GET("/health", handlers.Health.Health)

	apiV1 := router.Group("/v1")
	{
		apiV1.POST("/webhooks/stripe", handlers.Webhook.HandleStripeWebhook)

		tenants := apiV1.Group("/tenants")
		tenants.Use(middleware.SentryTenantContextMiddleware)
		{
			tenants.GET("/:id/subscription", handlers.Tenant.GetSubscription)
			tenants.GET("/:id/subscriptions", handlers.Tenant.ListSubscriptions)
			tenants.GET("/:id/billing-events", handlers.Tenant.ListBillingEvents)
		}

		apiV1.GET("/billing-events/orphaned", handlers.Tenant.ListOrphanedEvents)
	}

	return router
}
