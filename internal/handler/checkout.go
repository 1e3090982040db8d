package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/payment"
	"github.com/iliyamo/slot-reservation/internal/service"
)

// ReservationGetter is the read slice of the repository the checkout
// flow needs.
type ReservationGetter interface {
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
}

// CheckoutHandler opens payment sessions and confirms reservations from
// the two synchronous trigger paths: the browser return-redirect and the
// generic confirmation API.
type CheckoutHandler struct {
	Reservations ReservationGetter
	Provider     payment.Provider
	Lifecycle    *service.Lifecycle
}

func NewCheckoutHandler(res ReservationGetter, p payment.Provider, lc *service.Lifecycle) *CheckoutHandler {
	if res == nil || p == nil || lc == nil {
		panic("nil dependency passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{Reservations: res, Provider: p, Lifecycle: lc}
}

type checkoutReq struct {
	ReservationID string `json:"reservation_id"`
	// Outcome is honoured only by the simulation provider.
	Outcome string `json:"outcome"`
}

// Start handles POST /v1/checkout.  The session is always opened for the
// amount stored on the reservation; a client-supplied amount in the body
// is never read, so tampering with the request cannot change the charge.
func (h *CheckoutHandler) Start(c echo.Context) error {
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ReservationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id is required"})
	}

	// Bound the processor round trip so a slow provider cannot hold the
	// request open indefinitely.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByID(ctx, req.ReservationID)
	if err != nil {
		return lifecycleError(c, err, "")
	}
	switch res.Status {
	case model.StatusConfirmed:
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already confirmed", "status": res.Status})
	case model.StatusCancelled:
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is cancelled", "status": res.Status})
	}

	sess, err := h.Provider.CreateSession(ctx, res, req.Outcome)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to open payment session"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"checkout_url": sess.URL,
		"session_id":   sess.ID,
		"amount_cents": res.AmountCents,
		"currency":     res.Currency,
	})
}

// ConfirmReturn handles GET /v1/checkout/confirm, the redirect target the
// processor sends the browser back to.  The session is re-verified with
// the provider before the guarded confirmation runs, so a forged redirect
// cannot confirm an unpaid reservation.
func (h *CheckoutHandler) ConfirmReturn(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	conf, err := h.Provider.ResolveReturn(ctx, c.QueryParams())
	if err != nil {
		if errors.Is(err, payment.ErrSessionIncomplete) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment not completed"})
		}
		if errors.Is(err, payment.ErrMissingCorrelation) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing reservation reference"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to verify payment session"})
	}

	res, changed, err := h.Lifecycle.Confirm(ctx, conf.ReservationID, conf.PaymentRef, service.TriggerReturn)
	if err != nil {
		status := ""
		if res != nil {
			status = res.Status
		}
		return lifecycleError(c, err, status)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res, "changed": changed})
}

// SimulatedCheckout handles GET /simulated-checkout, the page the
// simulation provider redirects to in place of a hosted payment form. It
// echoes the session back with the confirm link a real processor would
// send the browser to.
func (h *CheckoutHandler) SimulatedCheckout(c echo.Context) error {
	q := c.QueryParams()
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "simulated payment page",
		"status":      q.Get("status"),
		"amount":      q.Get("amount"),
		"currency":    q.Get("currency"),
		"confirm_url": "/v1/checkout/confirm?" + q.Encode(),
	})
}

type confirmReq struct {
	ReservationID string `json:"reservation_id"`
	PaymentRef    string `json:"payment_ref"`
}

// ConfirmAPI handles POST /v1/payments/confirm, the generic confirmation
// entry point used by operators and out-of-band integrations.  It runs
// the same guarded transition as the other two paths; repeating the call
// is a harmless no-op.
func (h *CheckoutHandler) ConfirmAPI(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ReservationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id is required"})
	}

	res, changed, err := h.Lifecycle.Confirm(c.Request().Context(), req.ReservationID, req.PaymentRef, service.TriggerAPI)
	if err != nil {
		status := ""
		if res != nil {
			status = res.Status
		}
		return lifecycleError(c, err, status)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res, "changed": changed})
}
