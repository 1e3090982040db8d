// Package queue defines message payloads exchanged over the message broker
// plus the publisher and consumer for the reservation event queue.
package queue

// Event kinds carried on the reservation.events queue.
const (
	KindReservationReceived  = "reservation.received"
	KindPaymentConfirmed     = "payment.confirmed"
	KindReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is published whenever a reservation actually changes
// state (or is created).  It carries enough information for downstream
// consumers to log and send mail without querying the primary database.
type ReservationEvent struct {
	Kind          string `json:"kind"`
	ReservationID string `json:"reservation_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	PaymentRef    string `json:"payment_ref,omitempty"`
	Reason        string `json:"reason,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
