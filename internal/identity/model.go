package identity

import "time"

// User represents a registered member of the platform and wallet owner.
type User struct {
	ID           string
	Handle       string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Handle   string
	Password string
}
