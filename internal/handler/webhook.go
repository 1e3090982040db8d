package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/payment"
	"github.com/iliyamo/slot-reservation/internal/repository"
	"github.com/iliyamo/slot-reservation/internal/service"
)

// WebhookHandler receives asynchronous processor notifications.  Response
// codes are chosen for the processor's retry machinery: 2xx stops
// redelivery, 4xx rejects the event, 5xx asks for a retry.
type WebhookHandler struct {
	Provider  payment.Provider
	Lifecycle *service.Lifecycle
}

func NewWebhookHandler(p payment.Provider, lc *service.Lifecycle) *WebhookHandler {
	if p == nil || lc == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{Provider: p, Lifecycle: lc}
}

// Handle processes POST /v1/payments/webhook.  The raw body is read
// before any decoding because signature verification covers the exact
// bytes on the wire.
func (h *WebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to read body"})
	}

	note, err := h.Provider.ParseNotification(body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrBadSignature) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
		}
		if errors.Is(err, payment.ErrMissingCorrelation) {
			// Signed and well-formed but unusable; acknowledge so the
			// processor does not redeliver it forever.
			log.Printf("webhook: event without reservation id, acknowledged")
			return c.JSON(http.StatusOK, echo.Map{"received": true, "error": "missing reservation id"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if note == nil {
		// Event type we do not act on.
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	res, changed, err := h.Lifecycle.Confirm(c.Request().Context(), note.ReservationID, note.PaymentRef, service.TriggerWebhook)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			// The reservation was cancelled before payment settled.
			// Acknowledge so the processor stops retrying; the conflict
			// is surfaced for operators in the body.
			log.Printf("webhook: payment for cancelled reservation %s acknowledged", note.ReservationID)
			return c.JSON(http.StatusOK, echo.Map{"received": true, "error": "reservation cancelled"})
		case errors.Is(err, repository.ErrReservationNotFound):
			log.Printf("webhook: payment for unknown reservation %s acknowledged", note.ReservationID)
			return c.JSON(http.StatusOK, echo.Map{"received": true, "error": "unknown reservation"})
		default:
			// Transient store failures get a 5xx so the event is retried.
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "temporary failure"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true, "status": res.Status, "changed": changed})
}
