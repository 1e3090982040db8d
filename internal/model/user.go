package model

import "time"

// User is a login account.  Accounts exist only when someone registers;
// they are separate from Customer contact rows, and the two are linked by
// email when resolving reservation ownership.  Role is CUSTOMER or STAFF.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken is a row of `refresh_tokens`.  TokenHash holds the SHA-256
// of the raw value; the raw token itself is never stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
