package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// CustomerRepo persists booking contacts.  Customers are only ever written
// through UpsertByEmail, which is race-safe: two near-simultaneous
// reservation creations for the same address converge on one row.
type CustomerRepo struct{ db *sql.DB }

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// UpsertByEmail inserts a customer or returns the existing row for the
// normalized email.  The `id = LAST_INSERT_ID(id)` trick makes MySQL hand
// back the existing primary key on the duplicate path, so a single atomic
// statement covers both outcomes.  Name and phone only overwrite when the
// new values are non-empty.
func (r *CustomerRepo) UpsertByEmail(ctx context.Context, email, name, phone string) (*model.Customer, error) {
	email = normalizeEmail(email)
	const q = `INSERT INTO customers (email, name, phone) VALUES (?, ?, ?)
               ON DUPLICATE KEY UPDATE
                   id = LAST_INSERT_ID(id),
                   name = IF(VALUES(name) <> '', VALUES(name), name),
                   phone = IF(VALUES(phone) <> '', VALUES(phone), phone)`
	result, err := r.db.ExecContext(ctx, q, email, name, phone)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a customer by primary key.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (*model.Customer, error) {
	var c model.Customer
	var phone sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, name, phone, created_at, updated_at FROM customers WHERE id = ? LIMIT 1",
		id).Scan(&c.ID, &c.Email, &c.Name, &phone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		c.Phone = phone.String
	}
	return &c, nil
}

// CustomerListItem pairs a contact with its reservation count, as shown
// on staff listings and exports.
type CustomerListItem struct {
	model.Customer
	ReservationCount int `json:"reservation_count"`
}

// Search returns one page of customers ordered newest first, plus the
// total match count.  A non-empty query filters on name, email or phone
// containing it.
func (r *CustomerRepo) Search(ctx context.Context, query string, page, limit int) ([]CustomerListItem, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	where := ""
	var args []any
	if query != "" {
		where = " WHERE c.name LIKE ? OR c.email LIKE ? OR c.phone LIKE ?"
		like := "%" + query + "%"
		args = append(args, like, like, like)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers c"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT c.id, c.email, c.name, c.phone, c.created_at, c.updated_at, COUNT(res.id)
          FROM customers c
          LEFT JOIN reservations res ON res.customer_id = c.id` + where + `
          GROUP BY c.id
          ORDER BY c.created_at DESC, c.id DESC
          LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []CustomerListItem
	for rows.Next() {
		var it CustomerListItem
		var phone sql.NullString
		if err := rows.Scan(&it.ID, &it.Email, &it.Name, &phone, &it.CreatedAt, &it.UpdatedAt, &it.ReservationCount); err != nil {
			return nil, 0, err
		}
		if phone.Valid {
			it.Phone = phone.String
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// GetByEmail fetches a customer by normalized email.
func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (*model.Customer, error) {
	email = normalizeEmail(email)
	var c model.Customer
	var phone sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, name, phone, created_at, updated_at FROM customers WHERE email = ? LIMIT 1",
		email).Scan(&c.ID, &c.Email, &c.Name, &phone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		c.Phone = phone.String
	}
	return &c, nil
}
