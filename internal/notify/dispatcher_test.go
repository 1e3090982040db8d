package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/queue"
)

func captureDispatcher() (*Dispatcher, chan queue.ReservationEvent) {
	events := make(chan queue.ReservationEvent, 8)
	d := &Dispatcher{
		publish: func(_ context.Context, ev queue.ReservationEvent) error {
			events <- ev
			return nil
		},
		timeout: time.Second,
	}
	return d, events
}

func waitEvent(t *testing.T, events chan queue.ReservationEvent) queue.ReservationEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return queue.ReservationEvent{}
	}
}

func TestDispatcher_ConfirmedEvent(t *testing.T) {
	d, events := captureDispatcher()
	ref := "pi_42"
	res := &model.Reservation{
		ID:          "res-1",
		Date:        time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Slot:        "10:00",
		AmountCents: 6000,
		Currency:    "jpy",
		Status:      model.StatusConfirmed,
		PaymentRef:  &ref,
	}
	cust := &model.Customer{Email: "ada@example.com", Name: "Ada"}

	d.ReservationConfirmed(res, cust)

	ev := waitEvent(t, events)
	assert.Equal(t, queue.KindPaymentConfirmed, ev.Kind)
	assert.Equal(t, "res-1", ev.ReservationID)
	assert.Equal(t, "2026-09-01", ev.Date)
	assert.Equal(t, "pi_42", ev.PaymentRef)
	assert.Equal(t, "ada@example.com", ev.CustomerEmail)
	require.NotEmpty(t, ev.OccurredAt)
	_, err := time.Parse(time.RFC3339, ev.OccurredAt)
	assert.NoError(t, err)
}

func TestDispatcher_CancelledCarriesReason(t *testing.T) {
	d, events := captureDispatcher()
	res := &model.Reservation{ID: "res-1", Status: model.StatusCancelled}
	cust := &model.Customer{Email: "ada@example.com"}

	d.ReservationCancelled(res, cust, "sick")

	ev := waitEvent(t, events)
	assert.Equal(t, queue.KindReservationCancelled, ev.Kind)
	assert.Equal(t, "sick", ev.Reason)
	assert.Empty(t, ev.PaymentRef)
}

func TestDispatcher_PublishErrorDoesNotPropagate(t *testing.T) {
	done := make(chan struct{})
	d := &Dispatcher{
		publish: func(context.Context, queue.ReservationEvent) error {
			close(done)
			return context.DeadlineExceeded
		},
		timeout: time.Second,
	}

	// Must not panic or block the caller.
	d.ReservationReceived(&model.Reservation{ID: "res-1"}, &model.Customer{Email: "a@b.c"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish was never attempted")
	}
}
