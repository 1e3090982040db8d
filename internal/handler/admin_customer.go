package handler

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// CustomerDirectory is the slice of the customer repository the staff
// surface reads from.
type CustomerDirectory interface {
	Search(ctx context.Context, query string, page, limit int) ([]repository.CustomerListItem, int, error)
	GetByEmail(ctx context.Context, email string) (*model.Customer, error)
}

// AdminCustomerHandler exposes the staff view of booking contacts:
// searchable listing, exact lookup by address, and CSV export with
// per-customer reservation counts.
type AdminCustomerHandler struct {
	Customers CustomerDirectory
}

func NewAdminCustomerHandler(dir CustomerDirectory) *AdminCustomerHandler {
	if dir == nil {
		panic("nil directory passed to NewAdminCustomerHandler")
	}
	return &AdminCustomerHandler{Customers: dir}
}

// List handles GET /v1/admin/customers.  ?q= filters on name, email or
// phone; ?email= short-circuits to an exact single-contact lookup.
func (h *AdminCustomerHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	if email := strings.TrimSpace(c.QueryParam("email")); email != "" {
		cust, err := h.Customers.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.JSON(http.StatusOK, echo.Map{"customer": cust})
	}

	page, limit, _, _ := pageParams(c)
	items, total, err := h.Customers.Search(ctx, strings.TrimSpace(c.QueryParam("q")), page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"customers": items,
		"meta":      echo.Map{"page": page, "limit": limit, "total": total},
	})
}

// ExportCSV handles GET /v1/admin/customers/export.
func (h *AdminCustomerHandler) ExportCSV(c echo.Context) error {
	ctx := c.Request().Context()

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="customers.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{"customer_id", "name", "email", "phone", "created_at", "reservations_count"}); err != nil {
		return err
	}
	for page := 1; ; page++ {
		items, total, err := h.Customers.Search(ctx, "", page, 100)
		if err != nil {
			return err
		}
		for _, it := range items {
			row := []string{
				strconv.FormatUint(it.ID, 10),
				it.Name,
				it.Email,
				it.Phone,
				it.CreatedAt.Format("2006-01-02 15:04:05"),
				strconv.Itoa(it.ReservationCount),
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
