package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SlotHandler serves the bookable time slots. The list is static per
// deployment, which is why this route sits behind the response cache.
type SlotHandler struct {
	Slots    []string
	Currency string
}

// List handles GET /v1/slots.
func (h *SlotHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"slots":    h.Slots,
		"currency": h.Currency,
	})
}
