// Package service contains the reservation lifecycle engine: the guarded,
// idempotent transitions that every confirmation and cancellation trigger
// funnels through.  No entry point performs an unconditional status write;
// correctness under racing or duplicated triggers comes entirely from the
// store's conditional updates, not from in-process locking.
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// Trigger identities, used only for logging.  The guard logic is identical
// regardless of which path invoked it.
const (
	TriggerReturn  = "return"  // browser return-redirect
	TriggerWebhook = "webhook" // asynchronous processor notification
	TriggerAPI     = "api"     // generic confirm-by-id call
)

// ReservationStore is the slice of the repository the resolvers need.
type ReservationStore interface {
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetForIdentity(ctx context.Context, id, identity string) (*model.Reservation, error)
	ConfirmIfPending(ctx context.Context, id, paymentRef string) (bool, error)
	CancelIfActive(ctx context.Context, id, notes string) (bool, error)
}

// CustomerStore resolves the contact a notification goes to.
type CustomerStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Customer, error)
}

// Notifier is the fire-and-forget side channel.  Implementations must
// never block the caller or surface errors; the resolvers call these
// methods exactly once per actual state transition.
type Notifier interface {
	ReservationConfirmed(res *model.Reservation, cust *model.Customer)
	ReservationCancelled(res *model.Reservation, cust *model.Customer, reason string)
}

// Lifecycle glues the guarded store updates to notification dispatch.
type Lifecycle struct {
	store     ReservationStore
	customers CustomerStore
	notifier  Notifier
	now       func() time.Time
}

// NewLifecycle wires the resolvers.  All dependencies must be non-nil.
func NewLifecycle(store ReservationStore, customers CustomerStore, notifier Notifier) *Lifecycle {
	if store == nil || customers == nil || notifier == nil {
		panic("nil dependency passed to NewLifecycle")
	}
	return &Lifecycle{store: store, customers: customers, notifier: notifier, now: time.Now}
}

// Confirm drives the PENDING→CONFIRMED transition.  It is safe to call any
// number of times from any trigger: the first caller to win the
// conditional update attaches its payment reference and causes one
// notification; every later call observes CONFIRMED and returns the
// unchanged record with changed=false.  Confirming a cancelled
// reservation is a conflict, never a resurrection.  An empty paymentRef
// is replaced with a synthesized one so manual and simulated triggers
// still produce a traceable reference.
func (l *Lifecycle) Confirm(ctx context.Context, reservationID, paymentRef, trigger string) (*model.Reservation, bool, error) {
	if paymentRef == "" {
		paymentRef = fmt.Sprintf("manual_%d", l.now().UnixMilli())
	}

	res, err := l.store.GetByID(ctx, reservationID)
	if err != nil {
		return nil, false, err
	}
	switch res.Status {
	case model.StatusConfirmed:
		// Duplicate trigger: report success with the existing record so a
		// customer refreshing the return page sees the same outcome.
		return res, false, nil
	case model.StatusCancelled:
		return res, false, repository.ErrConflict
	}

	changed, err := l.store.ConfirmIfPending(ctx, reservationID, paymentRef)
	if err != nil {
		return nil, false, err
	}
	// Whoever won or lost the race, the row is re-read so the caller and
	// the notification both see the committed state.
	res, err = l.store.GetByID(ctx, reservationID)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		// Lost the race between our read and our conditional write.
		switch res.Status {
		case model.StatusConfirmed:
			return res, false, nil
		default:
			return res, false, repository.ErrConflict
		}
	}

	log.Printf("reservation %s confirmed via %s (ref=%s)", res.ID, trigger, paymentRef)
	l.notifyConfirmed(ctx, res)
	return res, true, nil
}

// Cancel drives the {PENDING,CONFIRMED}→CANCELLED transition on behalf of
// the owning customer.  Ownership failures and unknown ids are reported
// identically (ErrReservationNotFound) so callers cannot probe for
// existence.  Cancelling an already-cancelled reservation is an
// idempotent success with no second notification.
func (l *Lifecycle) Cancel(ctx context.Context, reservationID, identity, reason string) (*model.Reservation, bool, error) {
	if identity == "" {
		return nil, false, repository.ErrForbidden
	}
	res, err := l.store.GetForIdentity(ctx, reservationID, identity)
	if err != nil {
		return nil, false, err
	}
	if res.Status == model.StatusCancelled {
		return res, false, nil
	}

	changed, err := l.store.CancelIfActive(ctx, reservationID, appendCancelNote(res.Notes, reason))
	if err != nil {
		return nil, false, err
	}
	res, err = l.store.GetByID(ctx, reservationID)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		if res.Status == model.StatusCancelled {
			// Someone else cancelled between our read and write; their
			// transition owns the notification.
			return res, false, nil
		}
		return res, false, repository.ErrConflict
	}

	log.Printf("reservation %s cancelled by %s", res.ID, identity)
	l.notifyCancelled(ctx, res, reason)
	return res, true, nil
}

// appendCancelNote appends the cancellation reason to existing notes; it
// never overwrites what is already there.
func appendCancelNote(notes, reason string) string {
	if strings.TrimSpace(reason) == "" {
		return notes
	}
	line := "[CANCEL] " + strings.TrimSpace(reason)
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// notifyConfirmed resolves the contact and dispatches one confirmation
// message.  A missing customer row is logged and skipped; notification
// failure can never fail the transition that already committed.
func (l *Lifecycle) notifyConfirmed(ctx context.Context, res *model.Reservation) {
	cust, err := l.customers.GetByID(ctx, res.CustomerID)
	if err != nil {
		log.Printf("notify: load customer %d for reservation %s: %v", res.CustomerID, res.ID, err)
		return
	}
	l.notifier.ReservationConfirmed(res, cust)
}

func (l *Lifecycle) notifyCancelled(ctx context.Context, res *model.Reservation, reason string) {
	cust, err := l.customers.GetByID(ctx, res.CustomerID)
	if err != nil {
		log.Printf("notify: load customer %d for reservation %s: %v", res.CustomerID, res.ID, err)
		return
	}
	l.notifier.ReservationCancelled(res, cust, reason)
}
