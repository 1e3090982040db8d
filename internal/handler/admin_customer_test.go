package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

type fakeDirectory struct {
	items []repository.CustomerListItem
}

func (f *fakeDirectory) Search(_ context.Context, query string, page, limit int) ([]repository.CustomerListItem, int, error) {
	var matched []repository.CustomerListItem
	for _, it := range f.items {
		if query == "" || strings.Contains(it.Name, query) || strings.Contains(it.Email, query) {
			matched = append(matched, it)
		}
	}
	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeDirectory) GetByEmail(_ context.Context, email string) (*model.Customer, error) {
	for _, it := range f.items {
		if it.Email == email {
			cust := it.Customer
			return &cust, nil
		}
	}
	return nil, sql.ErrNoRows
}

func directoryWith(items ...repository.CustomerListItem) *fakeDirectory {
	return &fakeDirectory{items: items}
}

func contactRow(id uint64, name, email string, reservations int) repository.CustomerListItem {
	return repository.CustomerListItem{
		Customer: model.Customer{
			ID:        id,
			Email:     email,
			Name:      name,
			CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		},
		ReservationCount: reservations,
	}
}

func TestAdminCustomerList(t *testing.T) {
	h := NewAdminCustomerHandler(directoryWith(
		contactRow(1, "Ada", "ada@example.com", 3),
		contactRow(2, "Grace", "grace@example.com", 1),
	))

	rec, resp := doJSON(t, h.List, http.MethodGet, "/v1/admin/customers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	customers, ok := resp["customers"].([]any)
	require.True(t, ok)
	assert.Len(t, customers, 2)
	first := customers[0].(map[string]any)
	assert.Equal(t, "ada@example.com", first["email"])
	assert.Equal(t, float64(3), first["reservation_count"])

	meta := resp["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["total"])
}

func TestAdminCustomerList_QueryFilters(t *testing.T) {
	h := NewAdminCustomerHandler(directoryWith(
		contactRow(1, "Ada", "ada@example.com", 3),
		contactRow(2, "Grace", "grace@example.com", 1),
	))

	rec, resp := doJSON(t, h.List, http.MethodGet, "/v1/admin/customers?q=grace", "")
	require.Equal(t, http.StatusOK, rec.Code)
	customers := resp["customers"].([]any)
	require.Len(t, customers, 1)
	assert.Equal(t, "grace@example.com", customers[0].(map[string]any)["email"])
}

func TestAdminCustomerList_EmailLookup(t *testing.T) {
	h := NewAdminCustomerHandler(directoryWith(
		contactRow(1, "Ada", "ada@example.com", 3),
	))

	rec, resp := doJSON(t, h.List, http.MethodGet, "/v1/admin/customers?email=ada@example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cust := resp["customer"].(map[string]any)
	assert.Equal(t, "Ada", cust["name"])

	rec, resp = doJSON(t, h.List, http.MethodGet, "/v1/admin/customers?email=nobody@example.com", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "customer not found", resp["error"])
}

func TestAdminCustomerExportCSV(t *testing.T) {
	h := NewAdminCustomerHandler(directoryWith(
		contactRow(1, "Ada", "ada@example.com", 3),
		contactRow(2, "Grace, PhD", "grace@example.com", 0),
	))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/customers/export", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ExportCSV(e.NewContext(req, rec)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "customers.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "customer_id,name,email,phone,created_at,reservations_count", lines[0])
	assert.Contains(t, lines[1], "ada@example.com")
	assert.Contains(t, lines[1], ",3")
	// encoding/csv quotes the comma in the name.
	assert.Contains(t, lines[2], `"Grace, PhD"`)
}
