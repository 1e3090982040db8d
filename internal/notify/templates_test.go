package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/slot-reservation/internal/queue"
)

func sampleEvent(kind string) queue.ReservationEvent {
	return queue.ReservationEvent{
		Kind:          kind,
		ReservationID: "res-1",
		CustomerEmail: "ada@example.com",
		CustomerName:  "Ada",
		Date:          "2026-09-01",
		Slot:          "10:00",
		AmountCents:   6000,
		Currency:      "jpy",
	}
}

func TestBuildCustomerMessage_Received(t *testing.T) {
	built := BuildCustomerMessage(sampleEvent(queue.KindReservationReceived), "http://localhost:8080")

	assert.Equal(t, "We received your reservation", built.Subject)
	assert.Contains(t, built.Body, "Hello Ada,")
	assert.Contains(t, built.Body, "Payment is still pending")
	assert.Contains(t, built.Body, "res-1")
	assert.Contains(t, built.Body, "6000 JPY")
	assert.Contains(t, built.Body, "http://localhost:8080/v1/reservations/res-1")
}

func TestBuildCustomerMessage_Confirmed(t *testing.T) {
	built := BuildCustomerMessage(sampleEvent(queue.KindPaymentConfirmed), "http://localhost:8080")

	assert.Equal(t, "Your payment is confirmed", built.Subject)
	assert.Contains(t, built.Body, "your reservation is confirmed")
}

func TestBuildCustomerMessage_CancelledWithReason(t *testing.T) {
	ev := sampleEvent(queue.KindReservationCancelled)
	ev.Reason = "change of plans"
	built := BuildCustomerMessage(ev, "http://localhost:8080")

	assert.Equal(t, "Your reservation was cancelled", built.Subject)
	assert.Contains(t, built.Body, "change of plans")

	ev.Reason = ""
	built = BuildCustomerMessage(ev, "http://localhost:8080")
	assert.NotContains(t, built.Body, "Reason:")
}

func TestBuildCustomerMessage_NameFallsBackToLocalPart(t *testing.T) {
	ev := sampleEvent(queue.KindReservationReceived)
	ev.CustomerName = ""
	built := BuildCustomerMessage(ev, "http://localhost:8080")

	assert.Contains(t, built.Body, "Hello ada,")
}

func TestBuildAdminMessage(t *testing.T) {
	ev := sampleEvent(queue.KindPaymentConfirmed)
	ev.PaymentRef = "pi_42"
	built := BuildAdminMessage(ev)

	assert.Contains(t, built.Subject, "[ADMIN]")
	assert.Contains(t, built.Subject, "res-1")
	assert.Contains(t, built.Body, "Ada <ada@example.com>")
	assert.Contains(t, built.Body, "pi_42")
}
