package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// ReservationRepo provides lookups and guarded status updates for
// reservations.  The status column is only ever mutated through the
// conditional updates below (compare-and-set on the current status); the
// single exception is AdminOverride, which intentionally bypasses the
// guard and must never be called from customer-facing paths.  All
// timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for callers that need transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationCols = `id, customer_id, date, slot,
       adult_count, student_count, child_count, infant_count,
       amount_cents, currency, status, payment_ref, notes, created_at, updated_at`

// scanReservation reads one row in reservationCols order.
func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var res model.Reservation
	var paymentRef, notes sql.NullString
	err := row.Scan(
		&res.ID, &res.CustomerID, &res.Date, &res.Slot,
		&res.Party.Adult, &res.Party.Student, &res.Party.Child, &res.Party.Infant,
		&res.AmountCents, &res.Currency, &res.Status, &paymentRef, &notes,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentRef.Valid {
		pr := paymentRef.String
		res.PaymentRef = &pr
	}
	if notes.Valid {
		res.Notes = notes.String
	}
	if !model.ValidStatus(res.Status) {
		return nil, fmt.Errorf("%w: reservation %s has status %q", ErrDataIntegrity, res.ID, res.Status)
	}
	return &res, nil
}

// Create inserts a new reservation in PENDING status and populates the
// generated ID and timestamps on the provided record.  The ID is an
// opaque UUID assigned here; amount and currency must already be set by
// the pricing layer and are immutable afterwards.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.Status == "" {
		res.Status = model.StatusPending
	}
	const q = `INSERT INTO reservations
        (id, customer_id, date, slot, adult_count, student_count, child_count, infant_count,
         amount_cents, currency, status, notes)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var notes any
	if res.Notes != "" {
		notes = res.Notes
	}
	_, err := r.db.ExecContext(ctx, q,
		res.ID, res.CustomerID, res.Date, res.Slot,
		res.Party.Adult, res.Party.Student, res.Party.Child, res.Party.Infant,
		res.AmountCents, res.Currency, res.Status, notes,
	)
	if err != nil {
		return err
	}
	// Query back the full row to populate timestamps and defaults.
	created, err := r.GetByID(ctx, res.ID)
	if err != nil {
		return err
	}
	*res = *created
	return nil
}

// GetByID returns a reservation by its opaque id.  ErrReservationNotFound
// is returned when no row exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	q := `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// GetForIdentity returns a reservation only when it is owned by the given
// identity.  An identity containing '@' is matched against the owning
// customer's email; anything else is parsed as a customer id.  A
// reservation that exists but belongs to someone else yields the same
// ErrReservationNotFound as a missing one, so existence never leaks.
func (r *ReservationRepo) GetForIdentity(ctx context.Context, id, identity string) (*model.Reservation, error) {
	var q string
	if strings.Contains(identity, "@") {
		q = `SELECT ` + prefixCols("r") + `
             FROM reservations r JOIN customers c ON c.id = r.customer_id
             WHERE r.id = ? AND c.email = ?`
	} else {
		q = `SELECT ` + prefixCols("r") + `
             FROM reservations r
             WHERE r.id = ? AND r.customer_id = ?`
	}
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id, identity))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// prefixCols qualifies reservationCols with a table alias.
func prefixCols(alias string) string {
	parts := strings.Split(reservationCols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// ConfirmIfPending performs the single conditional update that moves a
// reservation from PENDING to CONFIRMED and attaches the payment
// reference.  It reports whether the row actually changed; false means the
// reservation was not in PENDING at the moment of the write (already
// confirmed, cancelled, or missing) and the caller must re-read to decide.
// Two racing confirms can never both observe true here, which is what
// keeps the confirmation notification to exactly one send.
func (r *ReservationRepo) ConfirmIfPending(ctx context.Context, id, paymentRef string) (bool, error) {
	const q = `UPDATE reservations
               SET status = ?, payment_ref = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, q, model.StatusConfirmed, paymentRef, id, model.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CancelIfActive conditionally moves a reservation from PENDING or
// CONFIRMED to CANCELLED, writing the full notes value computed by the
// caller (current notes plus appended reason).  False means the row was
// not in a cancellable state at write time.
func (r *ReservationRepo) CancelIfActive(ctx context.Context, id, notes string) (bool, error) {
	const q = `UPDATE reservations
               SET status = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND status IN (?, ?)`
	result, err := r.db.ExecContext(ctx, q, model.StatusCancelled, notes, id,
		model.StatusPending, model.StatusConfirmed)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AdminOverride sets status, notes and/or payment reference directly,
// without any transition guard.  Nil fields are left untouched; notes are
// replaced wholesale, not appended.  This deliberately allows moves the
// guarded paths forbid (e.g. CONFIRMED back to PENDING) and exists for
// operational correction only.  It must never be reachable from the
// customer-facing resolvers.
func (r *ReservationRepo) AdminOverride(ctx context.Context, id string, status, notes, paymentRef *string) (*model.Reservation, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 4)
	if status != nil {
		if !model.ValidStatus(*status) {
			return nil, fmt.Errorf("%w: %q", ErrDataIntegrity, *status)
		}
		sets = append(sets, "status = ?")
		args = append(args, *status)
	}
	if notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *notes)
	}
	if paymentRef != nil {
		sets = append(sets, "payment_ref = ?")
		args = append(args, *paymentRef)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		q := "UPDATE reservations SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		args = append(args, id)
		result, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			// MySQL reports 0 for a no-op update of identical values as
			// well, so double check existence before reporting not found.
			if _, err := r.GetByID(ctx, id); err != nil {
				return nil, err
			}
		}
	}
	return r.GetByID(ctx, id)
}

// ReservationListItem is a reservation joined with its customer's contact
// details, as shown on staff listings and exports.
type ReservationListItem struct {
	model.Reservation
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
}

// ListOptions controls paging and ordering of List.  Sort fields are
// whitelisted; anything unknown falls back to created_at.
type ListOptions struct {
	Page     int
	Limit    int
	SortBy   string // created_at | updated_at | date | status | amount_cents
	SortDesc bool
	Identity string // optional owner filter, same matching as GetForIdentity
}

var listSortFields = map[string]string{
	"created_at":   "r.created_at",
	"updated_at":   "r.updated_at",
	"date":         "r.date",
	"status":       "r.status",
	"amount_cents": "r.amount_cents",
}

// List returns a page of reservations with customer contact details plus
// the total row count for the same filter.
func (r *ReservationRepo) List(ctx context.Context, opts ListOptions) ([]ReservationListItem, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > 100 {
		opts.Limit = 20
	}
	orderCol, ok := listSortFields[opts.SortBy]
	if !ok {
		orderCol = "r.created_at"
	}
	dir := "ASC"
	if opts.SortDesc {
		dir = "DESC"
	}

	where := ""
	args := make([]any, 0, 3)
	if opts.Identity != "" {
		if strings.Contains(opts.Identity, "@") {
			where = " WHERE c.email = ?"
		} else {
			where = " WHERE r.customer_id = ?"
		}
		args = append(args, opts.Identity)
	}

	countQ := `SELECT COUNT(*) FROM reservations r JOIN customers c ON c.id = r.customer_id` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + prefixCols("r") + `, c.email, c.name
          FROM reservations r JOIN customers c ON c.id = r.customer_id` + where +
		` ORDER BY ` + orderCol + ` ` + dir + ` LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]ReservationListItem, 0, opts.Limit)
	for rows.Next() {
		var item ReservationListItem
		var paymentRef, notes sql.NullString
		if err := rows.Scan(
			&item.ID, &item.CustomerID, &item.Date, &item.Slot,
			&item.Party.Adult, &item.Party.Student, &item.Party.Child, &item.Party.Infant,
			&item.AmountCents, &item.Currency, &item.Status, &paymentRef, &notes,
			&item.CreatedAt, &item.UpdatedAt,
			&item.CustomerEmail, &item.CustomerName,
		); err != nil {
			return nil, 0, err
		}
		if paymentRef.Valid {
			pr := paymentRef.String
			item.PaymentRef = &pr
		}
		if notes.Valid {
			item.Notes = notes.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
