package booking

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the public availability endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/resources/:id/availability", h.GetResourceAvailability)
	rg.GET("/resources/:id/occupancy", h.GetResourceOccupancy)
	rg.GET("/tenants/:tenantID/availability", h.ListTenantAvailability)
}

// RegisterOperatorRoutes mounts endpoints that bypass payment; the group must
// carry operator auth.
func (h *Handler) RegisterOperatorRoutes(rg *gin.RouterGroup) {
	rg.POST("/resources/:id/reservations", h.CreateReservation)
	rg.GET("/bookings/:id", h.GetBooking)
}
