package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/pricing"
	"github.com/iliyamo/slot-reservation/internal/repository"
	"github.com/iliyamo/slot-reservation/internal/service"
)

// Create and List round out fakeStore so it also satisfies the handler's
// ReservationStore.
func (s *fakeStore) Create(_ context.Context, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.ID == "" {
		res.ID = "gen-" + strconv.Itoa(len(s.rows)+1)
	}
	if res.Status == "" {
		res.Status = model.StatusPending
	}
	cp := *res
	s.rows[res.ID] = &cp
	return nil
}

func (s *fakeStore) List(_ context.Context, opts repository.ListOptions) ([]repository.ReservationListItem, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []repository.ReservationListItem
	for id, res := range s.rows {
		if opts.Identity != "" && s.owners[id] != opts.Identity {
			continue
		}
		items = append(items, repository.ReservationListItem{Reservation: *res, CustomerEmail: s.owners[id]})
	}
	return items, len(items), nil
}

type fakeCustomerRepo struct {
	mu     sync.Mutex
	nextID uint64
	byMail map[string]*model.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{byMail: map[string]*model.Customer{}}
}

func (r *fakeCustomerRepo) UpsertByEmail(_ context.Context, email, name, phone string) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byMail[email]; ok {
		if name != "" {
			c.Name = name
		}
		if phone != "" {
			c.Phone = phone
		}
		return c, nil
	}
	r.nextID++
	c := &model.Customer{ID: r.nextID, Email: email, Name: name, Phone: phone}
	r.byMail[email] = c
	return c, nil
}

type receivedRecorder struct {
	mu    sync.Mutex
	count int
	last  *model.Reservation
}

func (r *receivedRecorder) ReservationReceived(res *model.Reservation, _ *model.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	r.last = res
}

var testRates = pricing.RateTable{Currency: "jpy", AdultCents: 2500, StudentCents: 1500, ChildCents: 1000}

func testReservationHandler(store *fakeStore) (*ReservationHandler, *fakeCustomerRepo, *receivedRecorder, *countingNotifier) {
	customers := newFakeCustomerRepo()
	received := &receivedRecorder{}
	notifier := &countingNotifier{}
	lc := service.NewLifecycle(store, fakeCustomers{}, notifier)
	h := NewReservationHandler(store, customers, testRates, lc, received, []string{"10:00", "13:00"})
	return h, customers, received, notifier
}

func TestCreateReservation(t *testing.T) {
	store := newFakeStore()
	h, customers, received, _ := testReservationHandler(store)

	body := `{
        "customer_email": "Ada@Example.com",
        "customer_name": "Ada",
        "date": "2026-09-01",
        "slot": "10:00",
        "party": {"adult": 2, "child": 1},
        "notes": "window seat"
    }`
	rec, resp := doJSON(t, h.Create, http.MethodPost, "/v1/reservations", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	res := resp["reservation"].(map[string]any)
	assert.Equal(t, string(model.StatusPending), res["status"].(string))
	assert.Equal(t, float64(2*2500+1000), res["amount_cents"])
	assert.Equal(t, "jpy", res["currency"])

	cust, ok := customers.byMail["ada@example.com"]
	require.True(t, ok, "email normalized before upsert")
	assert.Equal(t, "Ada", cust.Name)

	assert.Equal(t, 1, received.count)
}

func TestCreateReservation_AmountNeverFromClient(t *testing.T) {
	store := newFakeStore()
	h, _, _, _ := testReservationHandler(store)

	// amount_cents in the body is not a recognized field and is dropped.
	body := `{
        "customer_email": "ada@example.com",
        "date": "2026-09-01",
        "slot": "10:00",
        "party": {"adult": 1},
        "amount_cents": 1
    }`
	rec, resp := doJSON(t, h.Create, http.MethodPost, "/v1/reservations", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	res := resp["reservation"].(map[string]any)
	assert.Equal(t, float64(2500), res["amount_cents"])
}

func TestCreateReservation_Validation(t *testing.T) {
	store := newFakeStore()
	h, _, received, _ := testReservationHandler(store)

	cases := []struct {
		name string
		body string
	}{
		{"missing email", `{"date": "2026-09-01", "slot": "10:00", "party": {"adult": 1}}`},
		{"bad date", `{"customer_email": "a@b.c", "date": "first of july", "slot": "10:00", "party": {"adult": 1}}`},
		{"unknown slot", `{"customer_email": "a@b.c", "date": "2026-09-01", "slot": "23:59", "party": {"adult": 1}}`},
		{"negative count", `{"customer_email": "a@b.c", "date": "2026-09-01", "slot": "10:00", "party": {"adult": -1}}`},
		{"empty party", `{"customer_email": "a@b.c", "date": "2026-09-01", "slot": "10:00", "party": {}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := doJSON(t, h.Create, http.MethodPost, "/v1/reservations", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, 0, received.count)
}

func TestCreateReservation_NameDefaultsToLocalPart(t *testing.T) {
	store := newFakeStore()
	h, customers, _, _ := testReservationHandler(store)

	body := `{"customer_email": "grace@example.com", "date": "2026-09-01", "slot": "13:00", "party": {"adult": 1}}`
	rec, _ := doJSON(t, h.Create, http.MethodPost, "/v1/reservations", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "grace", customers.byMail["grace@example.com"].Name)
}

func cancelContext(t *testing.T, body, email string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/reservations/r1/cancel", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("r1")
	if email != "" {
		c.Set("email", email)
	}
	return c, rec
}

func TestCancelReservation_Owner(t *testing.T) {
	store := newFakeStore()
	store.add(pendingRow("r1"), "ada@example.com")
	h, _, _, notifier := testReservationHandler(store)

	c, rec := cancelContext(t, `{"reason": "sick"}`, "ada@example.com")
	require.NoError(t, h.Cancel(c))

	require.Equal(t, http.StatusOK, rec.Code)
	res, err := store.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, res.Status)
	assert.Contains(t, res.Notes, "[CANCEL] sick")
	assert.Equal(t, 1, notifier.cancelled)
}

func TestCancelReservation_Unauthenticated(t *testing.T) {
	store := newFakeStore()
	store.add(pendingRow("r1"), "ada@example.com")
	h, _, _, notifier := testReservationHandler(store)

	c, rec := cancelContext(t, `{}`, "")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, notifier.cancelled)
}

func TestCancelReservation_ForeignLooksMissing(t *testing.T) {
	store := newFakeStore()
	store.add(pendingRow("r1"), "ada@example.com")
	h, _, _, notifier := testReservationHandler(store)

	c, rec := cancelContext(t, `{}`, "mallory@example.com")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found_or_forbidden")
	assert.Equal(t, 0, notifier.cancelled)

	res, err := store.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, res.Status)
}

func TestListReservations_ScopedToIdentity(t *testing.T) {
	store := newFakeStore()
	store.add(pendingRow("r1"), "ada@example.com")
	store.add(pendingRow("r2"), "grace@example.com")
	h, _, _, _ := testReservationHandler(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/reservations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("email", "ada@example.com")
	require.NoError(t, h.List(c))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "r1")
	assert.NotContains(t, rec.Body.String(), "r2")
}
