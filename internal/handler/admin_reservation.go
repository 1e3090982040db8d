package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// AdminReservationHandler exposes the staff surface: unrestricted listing
// and detail, the unguarded state override, and CSV export.
type AdminReservationHandler struct {
	Reservations *repository.ReservationRepo
}

func NewAdminReservationHandler(res *repository.ReservationRepo) *AdminReservationHandler {
	if res == nil {
		panic("nil repository passed to NewAdminReservationHandler")
	}
	return &AdminReservationHandler{Reservations: res}
}

// List handles GET /v1/admin/reservations across all customers.
func (h *AdminReservationHandler) List(c echo.Context) error {
	page, limit, sortBy, sortDesc := pageParams(c)
	items, total, err := h.Reservations.List(c.Request().Context(), repository.ListOptions{
		Page: page, Limit: limit, SortBy: sortBy, SortDesc: sortDesc,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservations": items,
		"meta":         echo.Map{"page": page, "limit": limit, "total": total},
	})
}

// Detail handles GET /v1/admin/reservations/:id without ownership checks.
func (h *AdminReservationHandler) Detail(c echo.Context) error {
	res, err := h.Reservations.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lifecycleError(c, err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

type overrideReq struct {
	Status     *string `json:"status"`
	Notes      *string `json:"notes"`
	PaymentRef *string `json:"payment_ref"`
}

// Override handles PATCH /v1/admin/reservations/:id.  It bypasses the
// guarded lifecycle transitions entirely, so staff can repair any state,
// including moving a confirmed reservation back to pending.  No
// notification is sent for overrides.
func (h *AdminReservationHandler) Override(c echo.Context) error {
	var req overrideReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Status == nil && req.Notes == nil && req.PaymentRef == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	if req.Status != nil && !model.ValidStatus(*req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	res, err := h.Reservations.AdminOverride(c.Request().Context(), c.Param("id"), req.Status, req.Notes, req.PaymentRef)
	if err != nil {
		return lifecycleError(c, err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

// ExportCSV handles GET /v1/admin/reservations/export and streams the
// full list as a spreadsheet-friendly file.
func (h *AdminReservationHandler) ExportCSV(c echo.Context) error {
	ctx := c.Request().Context()

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="reservations.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{"id", "customer_email", "customer_name", "date", "slot", "amount", "currency", "status", "payment_ref", "created_at"}); err != nil {
		return err
	}
	for page := 1; ; page++ {
		items, total, err := h.Reservations.List(ctx, repository.ListOptions{
			Page: page, Limit: 100, SortBy: "created_at",
		})
		if err != nil {
			return err
		}
		for _, it := range items {
			ref := ""
			if it.PaymentRef != nil {
				ref = *it.PaymentRef
			}
			row := []string{
				it.ID,
				it.CustomerEmail,
				it.CustomerName,
				it.Date.Format("2006-01-02"),
				it.Slot,
				fmt.Sprintf("%.2f", float64(it.AmountCents)/100),
				it.Currency,
				it.Status,
				ref,
				it.CreatedAt.Format("2006-01-02 15:04:05"),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		if len(items) == 0 || page*100 >= total {
			break
		}
	}
	w.Flush()
	return w.Error()
}
