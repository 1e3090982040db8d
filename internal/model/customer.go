package model

import "time"

// Customer is a booking contact.  Email is unique and acts as the natural
// key: repeated bookings from the same address are always attached to the
// same row via upsert, never duplicated.  Customers are never deleted by
// this subsystem.
type Customer struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
