package payment

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/money"
	"staybook/internal/pkg/response"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type Handler struct {
	processor *Processor
	checkout  *Checkout
	loggerf   func(format string, args ...interface{})
}

func NewHandler(processor *Processor, checkout *Checkout, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{processor: processor, checkout: checkout, loggerf: loggerf}
}

// Webhook godoc
// @Summary      Payment processor webhook
// @Description  Verifies the signed event and reconciles it into the booking ledger
// @Tags         Payments
// @Produce      json
// @Success      200 {object} Result
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "BAD_REQUEST", "unreadable body")
		return
	}

	res, err := h.processor.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, res)
	case errors.Is(err, ErrAuthentication):
		response.Error(c, http.StatusBadRequest, "INVALID_SIGNATURE", "signature verification failed")
	case IsPermanent(err):
		// Acknowledged so the processor stops redelivering.
		response.Success(c, http.StatusOK, res)
	default:
		h.loggerf("level=error msg=payment event will be redelivered event_id=%s err=%v", res.EventID, err)
		response.Error(c, http.StatusInternalServerError, "RETRY", "temporary failure")
	}
}

// CreateCheckout godoc
// @Summary      Start checkout
// @Description  Prices the stay and creates a payment intent carrying the booking metadata
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        tenantID path integer true "Tenant"
// @Param        body body CheckoutRequest true "Checkout payload"
// @Success      201 {object} CheckoutResponse
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /tenants/{tenantID}/checkout [post]
func (h *Handler) CreateCheckout(c *gin.Context) {
	tenantID, err := strconv.ParseInt(c.Param("tenantID"), 10, 64)
	if err != nil || tenantID <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid tenantID")
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.checkout.Start(c.Request.Context(), tenantID, req)
	if err != nil {
		h.checkoutError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp)
}

func (h *Handler) checkoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, catalog.ErrTenantNotFound), errors.Is(err, catalog.ErrResourceNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, booking.ErrConflict):
		response.Error(c, http.StatusConflict, "BOOKING_CONFLICT", "Resource is not available for the selected dates")
	case errors.Is(err, booking.ErrResourceUnavailable), errors.Is(err, ErrSubAccountDisabled), errors.Is(err, money.ErrInvalidSplit):
		response.Error(c, http.StatusUnprocessableEntity, "CHECKOUT_REFUSED", err.Error())
	default:
		h.loggerf("level=error msg=checkout failed err=%v", err)
		response.Error(c, http.StatusBadGateway, "PAYMENT_PROVIDER_ERROR", "could not start payment")
	}
}
