// Package notify implements the fire-and-forget notification side
// channel.  The dispatcher publishes events to the broker after the state
// transition has committed; the mail handler turns consumed events into
// SMTP messages.  Failures on either side are logged and swallowed — they
// never reach a resolver's response path.
package notify

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/slot-reservation/internal/mail"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/queue"
)

// publishFunc is swappable in tests.
type publishFunc func(ctx context.Context, ev queue.ReservationEvent) error

// Dispatcher satisfies service.Notifier by publishing one event per actual
// state transition.  Publishing happens on a separate goroutine with a
// bounded timeout so a slow broker cannot stall an HTTP response.
type Dispatcher struct {
	publish publishFunc
	timeout time.Duration
}

// NewDispatcher returns a Dispatcher backed by the RabbitMQ publisher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{publish: queue.Publish, timeout: 10 * time.Second}
}

// ReservationReceived announces a newly created (still unpaid) reservation.
func (d *Dispatcher) ReservationReceived(res *model.Reservation, cust *model.Customer) {
	d.send(eventFrom(queue.KindReservationReceived, res, cust, ""))
}

// ReservationConfirmed announces the PENDING→CONFIRMED transition.
func (d *Dispatcher) ReservationConfirmed(res *model.Reservation, cust *model.Customer) {
	d.send(eventFrom(queue.KindPaymentConfirmed, res, cust, ""))
}

// ReservationCancelled announces the transition to CANCELLED.
func (d *Dispatcher) ReservationCancelled(res *model.Reservation, cust *model.Customer, reason string) {
	d.send(eventFrom(queue.KindReservationCancelled, res, cust, reason))
}

func (d *Dispatcher) send(ev queue.ReservationEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.publish(ctx, ev); err != nil {
			log.Printf("notify: publish %s for %s failed: %v", ev.Kind, ev.ReservationID, err)
		}
	}()
}

func eventFrom(kind string, res *model.Reservation, cust *model.Customer, reason string) queue.ReservationEvent {
	ref := ""
	if res.PaymentRef != nil {
		ref = *res.PaymentRef
	}
	return queue.ReservationEvent{
		Kind:          kind,
		ReservationID: res.ID,
		CustomerEmail: cust.Email,
		CustomerName:  cust.Name,
		Date:          res.Date.Format("2006-01-02"),
		Slot:          res.Slot,
		AmountCents:   res.AmountCents,
		Currency:      res.Currency,
		PaymentRef:    ref,
		Reason:        reason,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
}

// MailHandler returns a queue.Handler that sends the customer mail and,
// when a staff list is configured, the admin copy.  Send errors are
// logged and reported to the consumer, which acknowledges anyway: the
// channel is best-effort by contract.
func MailHandler(m *mail.Mailer, baseURL string, adminTo, adminCC, adminBCC []string) queue.Handler {
	return func(ev queue.ReservationEvent) error {
		built := BuildCustomerMessage(ev, baseURL)
		tags := map[string]string{"reservation-id": ev.ReservationID, "kind": ev.Kind}
		if err := m.Send(ev.CustomerEmail, nil, nil, built.Subject, built.Body, tags); err != nil {
			log.Printf("mail: customer send for %s failed: %v", ev.ReservationID, err)
		}
		if len(adminTo) > 0 {
			admin := BuildAdminMessage(ev)
			if err := m.Send(adminTo[0], adminCC, adminBCC, admin.Subject, admin.Body, tags); err != nil {
				log.Printf("mail: admin send for %s failed: %v", ev.ReservationID, err)
			}
		}
		return nil
	}
}
