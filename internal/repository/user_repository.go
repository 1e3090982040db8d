package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/utils"
)

// ErrEmailExists is returned when registration collides with an existing
// account.
var ErrEmailExists = errors.New("email already exists")

const userCols = "id, email, password_hash, role, is_active, created_at, updated_at"

// UserRepo persists login accounts. Accounts are distinct from customer
// contact rows; the two are linked by email when resolving ownership.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create registers an account with a bcrypt-hashed password and returns
// the new id. A duplicate email maps to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	const q = `INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, normalizeEmail(email), hash, role)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := result.LastInsertId()
	return uint64(id), err
}

// GetByEmail looks an account up by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getWhere(ctx, "email = ?", normalizeEmail(email))
}

// GetByID looks an account up by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getWhere(ctx, "id = ?", id)
}

func (r *UserRepo) getWhere(ctx context.Context, cond string, arg any) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE "+cond+" LIMIT 1", arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
