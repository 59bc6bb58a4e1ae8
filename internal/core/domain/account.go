package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrAccountNotFound = errors.New("account not found")
var ErrAccountExists = errors.New("account already exists")

// Account models an authenticated API actor. Client accounts are bound to a
// scheduling user via UserID; admin accounts are not.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	UserID       string    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
