package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"staybook/internal/pkg/response"
	"staybook/internal/pkg/validator"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListResources lists a tenant's bookable resources
// @Summary List active resources
// @Tags Catalog
// @Produce json
// @Param tenantID path int true "Tenant ID"
// @Param pets query bool false "Only pet-friendly resources"
// @Param day_use query bool false "Only resources sold as day passes"
// @Success 200 {object} ResourceListResponse
// @Failure 404 {object} response.Envelope
// @Router /api/v1/tenants/{tenantID}/resources [get]
func (h *Handler) ListResources(c *gin.Context) {
	tenantID, ok := pathID(c, "tenantID")
	if !ok {
		return
	}
	if _, err := h.repo.GetTenant(c.Request.Context(), tenantID); err != nil {
		handleError(c, err)
		return
	}

	var filter CapabilityFilter
	if v, ok := boolQuery(c, "pets"); ok {
		filter.PetAllowed = &v
	}
	if v, ok := boolQuery(c, "day_use"); ok {
		filter.DayUseAllowed = &v
	}

	list, err := h.repo.ListActiveResources(c.Request.Context(), tenantID, filter)
	if err != nil {
		handleError(c, err)
		return
	}
	if list == nil {
		list = []Resource{}
	}
	response.Success(c, http.StatusOK, ResourceListResponse{TenantID: tenantID, Resources: list})
}

// POST /ops/tenants
func (h *Handler) CreateTenant(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := validator.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	t, err := req.Tenant()
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.repo.CreateTenant(c.Request.Context(), t); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, t)
}

// POST /ops/tenants/:tenantID/resources
func (h *Handler) CreateResource(c *gin.Context) {
	tenantID, ok := pathID(c, "tenantID")
	if !ok {
		return
	}
	var req CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := validator.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if _, err := h.repo.GetTenant(c.Request.Context(), tenantID); err != nil {
		handleError(c, err)
		return
	}

	res := &Resource{
		TenantID:      tenantID,
		Name:          req.Name,
		PriceMinor:    req.PriceMinor,
		IsActive:      true,
		PetAllowed:    req.PetAllowed,
		DayUseAllowed: req.DayUseAllowed,
	}
	if err := h.repo.CreateResource(c.Request.Context(), res); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// POST /ops/resources/:id/deactivate
func (h *Handler) DeactivateResource(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.repo.Deactivate(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "is_active": false})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid "+name)
		return 0, false
	}
	return id, true
}

func boolQuery(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTenantNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Tenant not found")
	case errors.Is(err, ErrResourceNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, ErrInvalidSettings):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
