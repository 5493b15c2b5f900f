package catalog

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/tenants/:tenantID/resources", h.ListResources)
}

// RegisterOperatorRoutes mounts tenant onboarding; the group must carry
// operator auth.
func (h *Handler) RegisterOperatorRoutes(r *gin.RouterGroup) {
	ops := r.Group("/ops")
	{
		ops.POST("/tenants", h.CreateTenant)
		ops.POST("/tenants/:tenantID/resources", h.CreateResource)
		ops.POST("/resources/:id/deactivate", h.DeactivateResource)
	}
}
