package auth

import "time"

// User is an account allowed to operate the system.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Enabled      bool
	CreatedAt    time.Time
}
