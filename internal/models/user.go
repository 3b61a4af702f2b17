package models

import "time"

// User represents a registered account.
type User struct {
	// ID is the store-assigned identifier.
	ID int64 `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// Username is the unique login name. Matching is exact and case-sensitive.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the user's password. Never serialized.
	PasswordHash string `json:"-"`

	// CreatedAt is when the account was registered.
	CreatedAt time.Time `json:"created_at"`
}
