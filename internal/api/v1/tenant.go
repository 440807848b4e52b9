package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/kinderbill/kinderbill/internal/api/dto"
	"github.com/kinderbill/kinderbill/internal/domain/subscription"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/service"
	"github.com/kinderbill/kinderbill/internal/types"
)

// TenantHandler exposes the read side of tenant billing state.
type TenantHandler struct {
	billingService service.TenantBillingService
	logger         *logger.Logger
}

// NewTenantHandler creates a new tenant handler.
func NewTenantHandler(billingService service.TenantBillingService, log *logger.Logger) *TenantHandler {
	return &TenantHandler{
		billingService: billingService,
		logger:         log,
	}
}

// GetSubscription returns the tenant's current subscription state and
// entitlements.
func (h *TenantHandler) GetSubscription(c *gin.Context) {
	tenantID := c.Param("id")
	ctx := types.SetTenantID(c.Request.Context(), tenantID)

	state, err := h.billingService.GetBillingState(ctx, tenantID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTenantBillingResponse(state.Tenant, state.ProviderCancelPending))
}

// ListSubscriptions returns the tenant's provider subscription records,
// newest first.
func (h *TenantHandler) ListSubscriptions(c *gin.Context) {
	tenantID := c.Param("id")
	ctx := types.SetTenantID(c.Request.Context(), tenantID)

	subs, err := h.billingService.ListSubscriptions(ctx, tenantID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": lo.Map(subs, func(s *subscription.Subscription, _ int) *dto.SubscriptionResponse {
			return dto.NewSubscriptionResponse(s)
		}),
		"total": len(subs),
	})
}

// ListBillingEvents returns the tenant's audit trail, newest first.
func (h *TenantHandler) ListBillingEvents(c *gin.Context) {
	tenantID := c.Param("id")
	ctx := types.SetTenantID(c.Request.Context(), tenantID)

	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.billingService.ListBillingEvents(ctx, tenantID, limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListBillingEventsResponse(events))
}

// ListOrphanedEvents returns events that never resolved to a tenant, for
// operator reconciliation.
func (h *TenantHandler) ListOrphanedEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.billingService.ListOrphanedEvents(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListBillingEventsResponse(events))
}
