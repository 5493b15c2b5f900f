package booking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"staybook/internal/domain/catalog"
	"staybook/internal/domain/money"
	"staybook/internal/pkg/response"
)

type Handler struct {
	availability *Availability
	reservations *Reservations
	ledger       *Ledger
}

func NewHandler(availability *Availability, reservations *Reservations, ledger *Ledger) *Handler {
	return &Handler{availability: availability, reservations: reservations, ledger: ledger}
}

// GET /resources/:id/availability?check_in=&check_out=
func (h *Handler) GetResourceAvailability(c *gin.Context) {
	resourceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	w, err := ParseWindow(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		handleError(c, err)
		return
	}
	opts := Options{IncludePending: c.Query("include_pending") == "true"}
	if raw := c.Query("exclude_booking_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid exclude_booking_id")
			return
		}
		opts.ExcludeBookingID = id
	}

	free, err := h.availability.IsAvailable(c.Request.Context(), resourceID, w, opts)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, AvailabilityResponse{
		ResourceID: resourceID,
		CheckIn:    FormatDate(w.CheckIn),
		CheckOut:   FormatDate(w.CheckOut),
		Available:  free,
	})
}

// GET /resources/:id/occupancy?as_of=RFC3339
func (h *Handler) GetResourceOccupancy(c *gin.Context) {
	resourceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "as_of must be RFC3339")
			return
		}
		asOf = t
	} else {
		asOf = time.Now()
	}

	free, err := h.availability.IsCurrentlyFree(c.Request.Context(), resourceID, asOf)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, OccupancyResponse{
		ResourceID: resourceID,
		AsOf:       asOf.Format(time.RFC3339),
		Free:       free,
	})
}

// GET /tenants/:tenantID/availability?check_in=&check_out=&pets=&day_use=
func (h *Handler) ListTenantAvailability(c *gin.Context) {
	tenantID, ok := pathID(c, "tenantID")
	if !ok {
		return
	}
	w, err := ParseWindow(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		handleError(c, err)
		return
	}

	var filter catalog.CapabilityFilter
	if v, ok := boolQuery(c, "pets"); ok {
		filter.PetAllowed = &v
	}
	if v, ok := boolQuery(c, "day_use"); ok {
		filter.DayUseAllowed = &v
	}

	resources, err := h.availability.ListAvailable(c.Request.Context(), tenantID, w, filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"check_in":  FormatDate(w.CheckIn),
		"check_out": FormatDate(w.CheckOut),
		"resources": resources,
	})
}

// POST /resources/:id/reservations
func (h *Handler) CreateReservation(c *gin.Context) {
	resourceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	b, err := h.reservations.Reserve(c.Request.Context(), resourceID, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

// GET /bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.ledger.GetByID(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
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
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "booking not found")
	case errors.Is(err, catalog.ErrResourceNotFound), errors.Is(err, catalog.ErrTenantNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrResourceUnavailable):
		response.Error(c, http.StatusUnprocessableEntity, "RESOURCE_UNAVAILABLE", err.Error())
	case errors.Is(err, ErrConflict):
		response.Error(c, http.StatusConflict, "BOOKING_CONFLICT", "Resource is not available for the selected dates")
	case errors.Is(err, money.ErrInvalidSplit):
		response.Error(c, http.StatusUnprocessableEntity, "INVALID_SPLIT", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
