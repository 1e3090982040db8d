package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/payment"
	"github.com/iliyamo/slot-reservation/internal/service"
)

func testWebhook(store *fakeStore) (*WebhookHandler, *countingNotifier) {
	notifier := &countingNotifier{}
	lc := service.NewLifecycle(store, fakeCustomers{}, notifier)
	return NewWebhookHandler(payment.NewSimulationProvider("http://localhost:8080"), lc), notifier
}

func completedEvent(reservationID, ref string) string {
	return `{
        "type": "checkout.session.completed",
        "data": {"object": {"payment_intent": "` + ref + `",
            "metadata": {"reservation_id": "` + reservationID + `"}}}
    }`
}

func TestWebhook_ConfirmsAndStopsRedelivery(t *testing.T) {
	store := newFakeStore()
	store.add(pendingRow("r1"), "ada@example.com")
	h, notifier := testWebhook(store)

	rec, resp := doJSON(t, h.Handle, http.MethodPost, "/v1/payments/webhook", completedEvent("r1", "pi_hook"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["changed"])
	assert.Equal(t, model.StatusConfirmed, resp["status"])

	// Redelivery of the same event is acknowledged without a second
	// transition or notification.
	rec, resp = doJSON(t, h.Handle, http.MethodPost, "/v1/payments/webhook", completedEvent("r1", "pi_hook"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, resp["changed"])

	res, err := store.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "pi_hook", *res.PaymentRef)
	assert.Equal(t, 1, notifier.confirmed)
}

func TestWebhook_CancelledReservationAcked(t *testing.T) {
	store := newFakeStore()
	row := pendingRow("r1")
	row.Status = model.StatusCancelled
	store.add(row, "ada@example.com")
	h, notifier := testWebhook(store)

	rec, resp := doJSON(t, h.Handle, http.MethodPost, "/v1/payments/webhook", completedEvent("r1", "pi_late"))

	// 2xx so the processor stops retrying; the conflict is in the body.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["received"])
	assert.Equal(t, "reservation cancelled", resp["error"])
	assert.Equal(t, 0, notifier.confirmed)

	res, err := store.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, res.Status)
	assert.Nil(t, res.PaymentRef)
}

func TestWebhook_UnknownReservationAcked(t *testing.T) {
	h, _ := testWebhook(newFakeStore())

	rec, resp := doJSON(t, h.Handle, http.MethodPost, "/v1/payments/webhook", completedEvent("ghost", "pi_1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unknown reservation", resp["error"])
}

func TestWebhook_IrrelevantEventIgnored(t *testing.T) {
	h, notifier := testWebhook(newFakeStore())

	rec, resp := doJSON(t, h.Handle, http.MethodPost, "/v1/payments/webhook", `{"type": "invoice.paid"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["received"])
	assert.Equal(t, 0, notifier.confirmed)
}

func TestWebhook_MissingCorrelationAcked(t *testing.T) {
	h, _ := testWebhook(newFakeStore())

	payload := `{"type": "checkout.session.completed", "data": {"object": {"payment_intent": "pi_1"}}}`
	rec, resp := doJSON(t, h.Handle, http.MethodPost, "/v1/payments/webhook", payload)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "missing reservation id", resp["error"])
}

func TestWebhook_MalformedPayloadRejected(t *testing.T) {
	h, _ := testWebhook(newFakeStore())

	rec, _ := doJSON(t, h.Handle, http.MethodPost, "/v1/payments/webhook", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
