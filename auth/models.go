package auth

import "time"

// User is a registered account. Users are created by registration and never updated.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Do not expose the hash
	CreatedAt    time.Time `json:"created_at"`
}
