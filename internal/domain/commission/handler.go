package commission

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"staybook/internal/domain/booking"
	"staybook/internal/pkg/response"
)

type Handler struct {
	repo           *Repository
	toleranceMinor int64
	now            func() time.Time
}

func NewHandler(repo *Repository, toleranceMinor int64) *Handler {
	return &Handler{repo: repo, toleranceMinor: toleranceMinor, now: time.Now}
}

// GetReport godoc
// @Summary Reconciliation report
// @Description Expected vs collected deferred commission per sub-account. `to` is inclusive; defaults to the last 30 days.
// @Tags Operations
// @Produce json
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} Report
// @Router /ops/commissions/report [get]
func (h *Handler) GetReport(c *gin.Context) {
	from, to, err := ReportRange(c.Query("from"), c.Query("to"), h.now())
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	report, err := h.repo.Report(c.Request.Context(), from, to, h.toleranceMinor)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}
	response.Success(c, http.StatusOK, report)
}

// GetCollection godoc
// @Summary Get one deferred collection
// @Tags Operations
// @Produce json
// @Param id path string true "Collection ID"
// @Router /ops/commissions/{id} [get]
func (h *Handler) GetCollection(c *gin.Context) {
	col, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"collection": col})
}

// Retry godoc
// @Summary Re-queue a failed or abandoned collection
// @Tags Operations
// @Produce json
// @Param id path string true "Collection ID"
// @Router /ops/commissions/{id}/retry [post]
func (h *Handler) Retry(c *gin.Context) {
	col, err := h.repo.Reset(c.Request.Context(), c.Param("id"), h.now())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"collection": col})
}

// ReportRange parses an inclusive [from, to] date range into the half-open
// [from, to+1d) the report uses.
func ReportRange(rawFrom, rawTo string, now time.Time) (time.Time, time.Time, error) {
	to := booking.Date(now)
	if rawTo != "" {
		d, err := booking.ParseDate(rawTo)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
		to = d
	}
	from := to.AddDate(0, 0, -30)
	if rawFrom != "" {
		d, err := booking.ParseDate(rawFrom)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
		from = d
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, errors.New("from must not be after to")
	}
	return from, to.AddDate(0, 0, 1), nil
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "collection not found")
	case errors.Is(err, ErrInvalidState):
		response.Error(c, http.StatusConflict, "INVALID_STATE", "collection was already collected")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
