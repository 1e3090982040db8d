// Package payment abstracts the external payment processor behind a small
// provider interface with two implementations: a live Stripe client and a
// deterministic local simulation.  Which one runs is decided once at
// startup from configuration, never per request.
package payment

import (
	"context"
	"errors"
	"net/url"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// Metadata keys round-tripped through the processor so that later signals
// can be correlated back to the originating reservation without trusting
// user input.
const metaReservationID = "reservation_id"

// Session is a created checkout session the customer is redirected to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ReturnConfirmation is the outcome resolved from the browser's
// return-redirect.  It is not authoritative for money movement on its
// own; it merely feeds the same guarded confirmation as the webhook.
type ReturnConfirmation struct {
	ReservationID string
	PaymentRef    string
}

// Notification is a parsed asynchronous event from the processor.  A nil
// notification from ParseNotification means the event type is not
// relevant and should be acknowledged without action.
type Notification struct {
	ReservationID string
	PaymentRef    string
}

// Errors shared by both implementations.
var (
	// ErrSessionIncomplete means the return-redirect referenced a session
	// the processor does not consider paid.
	ErrSessionIncomplete = errors.New("checkout session not complete")
	// ErrBadSignature means an asynchronous notification failed signature
	// verification and must be rejected.
	ErrBadSignature = errors.New("invalid notification signature")
	// ErrMissingCorrelation means a signal carried no reservation id.
	ErrMissingCorrelation = errors.New("notification missing reservation id")
)

// Provider is the processor-facing contract consumed by the checkout and
// confirmation handlers.  CreateSession never mutates reservation state.
type Provider interface {
	// Name identifies the implementation ("stripe" or "simulation").
	Name() string

	// CreateSession opens a payment session for the reservation's stored
	// amount and returns the redirect URL.  The reservation id travels in
	// opaque session metadata.  outcome is only honoured by the
	// simulation provider ("success", "decline", "cancel").
	CreateSession(ctx context.Context, res *model.Reservation, outcome string) (*Session, error)

	// ResolveReturn maps return-redirect query parameters to a
	// confirmation, verifying against the processor where possible.
	ResolveReturn(ctx context.Context, params url.Values) (*ReturnConfirmation, error)

	// ParseNotification validates and decodes an asynchronous event.
	// The signature header is required in live mode; simulation accepts
	// unsigned payloads.  Irrelevant event types return (nil, nil).
	ParseNotification(payload []byte, signature string) (*Notification, error)
}
