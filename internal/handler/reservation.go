package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/pricing"
	"github.com/iliyamo/slot-reservation/internal/repository"
	"github.com/iliyamo/slot-reservation/internal/service"
)

// ReservationStore is the slice of the repository the booking surface
// needs beyond the lifecycle's own store.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetForIdentity(ctx context.Context, id, identity string) (*model.Reservation, error)
	List(ctx context.Context, opts repository.ListOptions) ([]repository.ReservationListItem, int, error)
}

// CustomerStore upserts booking contacts.
type CustomerStore interface {
	UpsertByEmail(ctx context.Context, email, name, phone string) (*model.Customer, error)
}

// ReceivedNotifier acknowledges a newly created reservation.
type ReceivedNotifier interface {
	ReservationReceived(res *model.Reservation, cust *model.Customer)
}

// ReservationHandler owns reservation creation, customer listing/detail
// and the cancellation entry point.  Creation is public (guests book with
// an email address); everything else requires an authenticated identity.
type ReservationHandler struct {
	Reservations ReservationStore
	Customers    CustomerStore
	Rates        pricing.RateTable
	Lifecycle    *service.Lifecycle
	Dispatcher   ReceivedNotifier
	Slots        []string
}

func NewReservationHandler(res ReservationStore, cust CustomerStore,
	rates pricing.RateTable, lc *service.Lifecycle, d ReceivedNotifier, slots []string) *ReservationHandler {
	if res == nil || cust == nil || lc == nil || d == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: res, Customers: cust, Rates: rates, Lifecycle: lc, Dispatcher: d, Slots: slots}
}

type createReservationReq struct {
	CustomerEmail string            `json:"customer_email"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	Date          string            `json:"date"` // "2006-01-02"
	Slot          string            `json:"slot"` // e.g. "10:00"
	Party         model.PartyCounts `json:"party"`
	Notes         string            `json:"notes"`
}

// Create handles POST /v1/reservations.  The charge amount is derived
// server-side from the party counts; any amount present in the request
// body is ignored.  The customer row is upserted by email so repeat
// bookings never duplicate contacts.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.CustomerEmail = strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	if !strings.Contains(req.CustomerEmail, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_email is required"})
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	if !h.validSlot(req.Slot) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown slot", "slots": h.Slots})
	}
	if req.Party.Adult < 0 || req.Party.Student < 0 || req.Party.Child < 0 || req.Party.Infant < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "party counts must be non-negative"})
	}

	amount, err := h.Rates.Quote(req.Party)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "party has no members"})
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = req.CustomerEmail[:strings.IndexByte(req.CustomerEmail, '@')]
	}

	ctx := c.Request().Context()
	cust, err := h.Customers.UpsertByEmail(ctx, req.CustomerEmail, name, strings.TrimSpace(req.CustomerPhone))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save customer"})
	}

	res := &model.Reservation{
		CustomerID:  cust.ID,
		Date:        date,
		Slot:        req.Slot,
		Party:       req.Party,
		AmountCents: amount,
		Currency:    h.Rates.Currency,
		Status:      model.StatusPending,
		Notes:       clip(strings.TrimSpace(req.Notes), 500),
	}
	if err := h.Reservations.Create(ctx, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}

	// Acknowledgement mail is best-effort; the booking stands either way.
	h.Dispatcher.ReservationReceived(res, cust)

	return c.JSON(http.StatusCreated, echo.Map{"reservation": res})
}

// List handles GET /v1/reservations.  Authenticated customers always see
// only their own reservations; paging and sorting mirror the admin list.
func (h *ReservationHandler) List(c echo.Context) error {
	identity := identityFromContext(c)
	if identity == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page, limit, sortBy, sortDesc := pageParams(c)
	items, total, err := h.Reservations.List(c.Request().Context(), repository.ListOptions{
		Page: page, Limit: limit, SortBy: sortBy, SortDesc: sortDesc, Identity: identity,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservations": items,
		"meta":         echo.Map{"page": page, "limit": limit, "total": total},
	})
}

// Detail handles GET /v1/reservations/:id.  Ownership is enforced in the
// query itself; a reservation belonging to someone else is reported
// exactly like a missing one.
func (h *ReservationHandler) Detail(c echo.Context) error {
	identity := identityFromContext(c)
	if identity == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Reservations.GetForIdentity(c.Request().Context(), c.Param("id"), identity)
	if err != nil {
		return lifecycleError(c, err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /v1/reservations/:id/cancel.  Repeating the call on
// an already-cancelled reservation succeeds without a second notification.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	identity := identityFromContext(c)
	if identity == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, changed, err := h.Lifecycle.Cancel(c.Request().Context(), c.Param("id"), identity, clip(req.Reason, 500))
	if err != nil {
		status := ""
		if res != nil {
			status = res.Status
		}
		return lifecycleError(c, err, status)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res, "changed": changed})
}

func (h *ReservationHandler) validSlot(slot string) bool {
	if len(h.Slots) == 0 {
		return slot != ""
	}
	for _, s := range h.Slots {
		if s == slot {
			return true
		}
	}
	return false
}
