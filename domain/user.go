package domain

import "time"

// User identity as the messaging core sees it. Credential handling
// lives in the auth package; the core only ever reads the ID.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	RegisteredAt time.Time
}
