package commission

import "github.com/gin-gonic/gin"

// RegisterOperatorRoutes mounts the reconciliation endpoints; the group must
// carry operator auth.
func (h *Handler) RegisterOperatorRoutes(rg *gin.RouterGroup) {
	ops := rg.Group("/ops/commissions")
	{
		ops.GET("/report", h.GetReport)
		ops.GET("/:id", h.GetCollection)
		ops.POST("/:id/retry", h.Retry)
	}
}
