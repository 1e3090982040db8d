package notify

import (
	"fmt"
	"strings"

	"github.com/iliyamo/slot-reservation/internal/queue"
)

// Built is a rendered message ready for the mailer.
type Built struct {
	Subject string
	Body    string
}

// BuildCustomerMessage renders the customer-facing mail for an event.
func BuildCustomerMessage(ev queue.ReservationEvent, baseURL string) Built {
	detailURL := fmt.Sprintf("%s/v1/reservations/%s", baseURL, ev.ReservationID)
	switch ev.Kind {
	case queue.KindReservationReceived:
		return Built{
			Subject: "We received your reservation",
			Body: lines(
				fmt.Sprintf("Hello %s,", displayName(ev)),
				"",
				"Thank you for your reservation. Payment is still pending.",
				"",
				fmt.Sprintf("Reservation ID: %s", ev.ReservationID),
				fmt.Sprintf("Date / time:    %s %s", ev.Date, ev.Slot),
				fmt.Sprintf("Amount:         %d %s", ev.AmountCents, strings.ToUpper(ev.Currency)),
				"",
				"Details: "+detailURL,
			),
		}
	case queue.KindPaymentConfirmed:
		return Built{
			Subject: "Your payment is confirmed",
			Body: lines(
				fmt.Sprintf("Hello %s,", displayName(ev)),
				"",
				"We received your payment and your reservation is confirmed.",
				"",
				fmt.Sprintf("Reservation ID: %s", ev.ReservationID),
				fmt.Sprintf("Date / time:    %s %s", ev.Date, ev.Slot),
				fmt.Sprintf("Amount:         %d %s", ev.AmountCents, strings.ToUpper(ev.Currency)),
				"",
				"Details: "+detailURL,
			),
		}
	case queue.KindReservationCancelled:
		body := []string{
			fmt.Sprintf("Hello %s,", displayName(ev)),
			"",
			"Your reservation has been cancelled.",
			"",
			fmt.Sprintf("Reservation ID: %s", ev.ReservationID),
			fmt.Sprintf("Date / time:    %s %s", ev.Date, ev.Slot),
		}
		if ev.Reason != "" {
			body = append(body, fmt.Sprintf("Reason:         %s", ev.Reason))
		}
		return Built{Subject: "Your reservation was cancelled", Body: lines(body...)}
	}
	return Built{
		Subject: "Reservation update",
		Body:    lines(fmt.Sprintf("Reservation %s: %s", ev.ReservationID, ev.Kind)),
	}
}

// BuildAdminMessage renders the staff copy.  It is terser and always
// includes the customer address.
func BuildAdminMessage(ev queue.ReservationEvent) Built {
	subject := fmt.Sprintf("[ADMIN] %s: %s / %s %s", ev.Kind, ev.ReservationID, ev.Date, ev.Slot)
	body := []string{
		fmt.Sprintf("Event:       %s", ev.Kind),
		fmt.Sprintf("Reservation: %s", ev.ReservationID),
		fmt.Sprintf("Customer:    %s <%s>", ev.CustomerName, ev.CustomerEmail),
		fmt.Sprintf("Date / time: %s %s", ev.Date, ev.Slot),
		fmt.Sprintf("Amount:      %d %s", ev.AmountCents, strings.ToUpper(ev.Currency)),
	}
	if ev.PaymentRef != "" {
		body = append(body, fmt.Sprintf("Payment ref: %s", ev.PaymentRef))
	}
	if ev.Reason != "" {
		body = append(body, fmt.Sprintf("Reason:      %s", ev.Reason))
	}
	return Built{Subject: subject, Body: lines(body...)}
}

func displayName(ev queue.ReservationEvent) string {
	if ev.CustomerName != "" {
		return ev.CustomerName
	}
	// fall back to the mailbox local part, matching what reservation
	// creation does when no name was supplied
	if i := strings.IndexByte(ev.CustomerEmail, '@'); i > 0 {
		return ev.CustomerEmail[:i]
	}
	return "customer"
}

func lines(ls ...string) string { return strings.Join(ls, "\n") + "\n" }
