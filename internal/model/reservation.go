package model

import "time"

// Reservation status values as persisted in the `reservations` table.
// Exactly these three strings are valid; anything else read from storage
// is treated as a data-integrity error, never as a fourth state.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// ValidStatus reports whether s is one of the three persisted states.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCancelled
}

// PartyCounts records headcounts by pricing category.  They are used only
// to derive the charge amount when a reservation is created and are never
// re-priced afterwards.
type PartyCounts struct {
	Adult   int `json:"adult"`
	Student int `json:"student"`
	Child   int `json:"child"`
	Infant  int `json:"infant"`
}

// Reservation records a booked slot together with its charge and lifecycle
// status.  The ID is an opaque string and is the correlation key attached
// to every external payment session.
//
// Fields:
//
//	ID          – primary key, immutable (UUID string).
//	CustomerID  – owning customer.
//	Date        – booked day (date only, UTC).
//	Slot        – booked time slot label, e.g. "10:00".
//	Party       – headcounts used to derive AmountCents at creation.
//	AmountCents – charge in minor currency units, fixed at creation; the
//	              only value ever sent to the payment processor.
//	Currency    – ISO currency code, lower case.
//	Status      – PENDING, CONFIRMED or CANCELLED.
//	PaymentRef  – processor reference, nil until confirmed, write-once.
//	Notes       – free-text annotation; cancel appends, never overwrites.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last mutation timestamp.
type Reservation struct {
	ID          string      `json:"id"`
	CustomerID  uint64      `json:"customer_id"`
	Date        time.Time   `json:"date"`
	Slot        string      `json:"slot"`
	Party       PartyCounts `json:"party"`
	AmountCents int64       `json:"amount_cents"`
	Currency    string      `json:"currency"`
	Status      string      `json:"status"`
	PaymentRef  *string     `json:"payment_ref,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
