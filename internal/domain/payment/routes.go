package payment

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterWebhookRoutes(r *gin.RouterGroup) {
	r.POST("/payments/webhook", h.Webhook)
}

func (h *Handler) RegisterCheckoutRoutes(r *gin.RouterGroup) {
	r.POST("/tenants/:tenantID/checkout", h.CreateCheckout)
}
